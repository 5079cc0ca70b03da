package model

import (
	"path/filepath"
	"strings"
)

// FileRole is the role a file plays within a dossier
type FileRole string

const (
	RoleApplicationForm FileRole = "application-form"
	RoleAttachment1     FileRole = "attachment-1"
	RoleAttachment2     FileRole = "attachment-2"
	RoleUnknown         FileRole = "unknown"
)

// IsAttachment reports whether the role is one of the two attachment slots
func (r FileRole) IsAttachment() bool {
	return r == RoleAttachment1 || r == RoleAttachment2
}

// FileRef points at one document of a dossier
type FileRef struct {
	Name string `json:"name"`           // Base file name as found in the folder
	Path string `json:"path,omitempty"` // Full path, empty when the content is supplied otherwise
}

// Ext returns the lower-cased extension including the dot
func (f FileRef) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Dossier is one folder of submission documents reviewed as a unit
type Dossier struct {
	ID    string    `json:"id"`   // Folder name, used as the record identity
	Path  string    `json:"path"` // Folder path
	Files []FileRef `json:"files"`
}

// FileNames returns the file names in arrival order
func (d Dossier) FileNames() []string {
	names := make([]string, len(d.Files))
	for i, f := range d.Files {
		names[i] = f.Name
	}
	return names
}
