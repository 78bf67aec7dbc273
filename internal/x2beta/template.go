package x2beta

import (
	"fmt"
	"os"
	"path/filepath"

	"x2beta/internal/domain"
)

// TemplateInfo ties a GSTIN to its voucher template and display labels.
type TemplateInfo struct {
	GSTIN       string `json:"gstin"`
	FileName    string `json:"file_name"`
	CompanyName string `json:"company_name"`
	StateName   string `json:"state_name"`
}

// Registry resolves per-GSTIN templates under a template directory.
// Unregistered GSTINs fall back to the conventional file name.
type Registry struct {
	dir     string
	entries map[string]TemplateInfo
}

// NewRegistry creates a registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, entries: make(map[string]TemplateInfo)}
}

// Register adds or replaces a GSTIN's template entry.
func (r *Registry) Register(info TemplateInfo) {
	r.entries[info.GSTIN] = info
}

// Lookup returns the registered entry or a conventional default. The default
// state label comes from the GSTIN prefix.
func (r *Registry) Lookup(gstin string) TemplateInfo {
	if info, ok := r.entries[gstin]; ok {
		return info
	}
	info := TemplateInfo{
		GSTIN:    gstin,
		FileName: fmt.Sprintf("X2Beta Sales Template - %s.xlsx", gstin),
	}
	if s, ok := domain.StateByGSTIN(gstin); ok {
		info.StateName = s.Name
	}
	return info
}

// Resolve returns the on-disk template path, or ErrTemplateMissing when the
// file does not exist.
func (r *Registry) Resolve(gstin string) (TemplateInfo, string, error) {
	info := r.Lookup(gstin)
	path := filepath.Join(r.dir, info.FileName)
	if _, err := os.Stat(path); err != nil {
		return info, "", fmt.Errorf("%s: template %s for %s: %w",
			domain.CodeTemplateMissing, info.FileName, gstin, domain.ErrTemplateMissing)
	}
	return info, path, nil
}
