// Probe program showing what the reconciler can locate in one attachment.
// Renders a document through TextIn, or reads a local .md/.txt rendering,
// and prints every candidate value per verifiable field.
//
//	probe-attachment <file> [<file>...]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/textaudit/internal/extract"
	"github.com/ppiankov/textaudit/internal/extract/textin"
	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/reconcile"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: probe-attachment <file> [<file>...]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var client *textin.Client
	for _, path := range os.Args[1:] {
		fmt.Printf("=== %s ===\n", filepath.Base(path))

		text, err := render(ctx, path, &client)
		if err != nil {
			fmt.Printf("  error: %v\n\n", err)
			continue
		}

		idx := reconcile.NewIndex(text)
		for _, f := range model.Reduced() {
			cands := idx.Candidates(f)
			if len(cands) == 0 {
				fmt.Printf("  %-12s -\n", f.Name)
				continue
			}
			parts := make([]string, len(cands))
			for i, c := range cands {
				anchor := ""
				if c.Anchored {
					anchor = "*"
				}
				parts[i] = fmt.Sprintf("%s [%s%s]", c.Value, c.Origin, anchor)
			}
			fmt.Printf("  %-12s %s\n", f.Name, strings.Join(parts, " | "))
		}
		fmt.Println()
	}
}

// render reads local renderings directly and sends everything else to TextIn
func render(ctx context.Context, path string, client **textin.Client) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return extract.FlattenTables(string(data)), nil
	}

	if *client == nil {
		cfg := model.DefaultConfig().TextIn
		cfg.AppID = os.Getenv("TEXTIN_APP_ID")
		cfg.SecretCode = os.Getenv("TEXTIN_SECRET_CODE")
		c, err := textin.NewClient(cfg)
		if err != nil {
			return "", err
		}
		*client = c
	}

	doc, err := extract.Load(model.FileRef{Name: filepath.Base(path), Path: path}, 0)
	if err != nil {
		return "", err
	}
	return (*client).RenderText(ctx, doc)
}
