package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"
)

// LoadFromDirectory loads all prompts and schemas under baseDir into the global registry.
// Expected structure:
//
//	baseDir/
//	  prompts/
//	    narrative/
//	      revenue_analysis.json
//	  schemas/
//	    revenue_analysis.json
func LoadFromDirectory(baseDir string) (int, error) {
	return LoadFS(Get(), os.DirFS(baseDir))
}

// LoadFS loads prompts and schemas from fsys into r and returns the prompt count.
func LoadFS(r *Registry, fsys fs.FS) (int, error) {
	if err := loadPrompts(r, fsys, "prompts"); err != nil {
		return 0, fmt.Errorf("failed to load prompts: %w", err)
	}
	// Schemas are optional
	if err := loadSchemas(r, fsys, "schemas"); err != nil {
		return r.Count(), fmt.Errorf("failed to load schemas: %w", err)
	}
	return r.Count(), nil
}

// loadPrompts recursively loads all .json files from the prompts directory
func loadPrompts(r *Registry, fsys fs.FS, dir string) error {
	if _, err := fs.Stat(fsys, dir); err != nil {
		return fmt.Errorf("prompts directory not found: %s: %w", dir, err)
	}

	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}

		// Auto-generate ID and category from the path if not specified
		if pt.ID == "" {
			pt.ID = generateIDFromPath(p, dir)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(p, dir)
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		return nil
	})
}

// loadSchemas loads all schema JSON files; the file content is the schema itself
func loadSchemas(r *Registry, fsys fs.FS, dir string) error {
	if _, err := fs.Stat(fsys, dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read schema %s: %w", p, err)
		}

		baseName := strings.TrimSuffix(path.Base(p), ".json")
		return r.RegisterSchema(&ResponseSchema{
			ID:         baseName,
			Name:       baseName,
			JSONSchema: string(data),
		})
	})
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "prompts/narrative/revenue_analysis.json" -> "narrative.revenue_analysis"
func generateIDFromPath(p string, baseDir string) string {
	rel := strings.TrimPrefix(p, baseDir+"/")
	rel = strings.TrimSuffix(rel, ".json")
	return strings.ReplaceAll(rel, "/", ".")
}

// detectCategory extracts the category from the folder structure
func detectCategory(p string, baseDir string) string {
	rel := strings.TrimPrefix(p, baseDir+"/")
	parts := strings.Split(rel, "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}
	if missing := ctx.Missing(pt); len(missing) > 0 {
		return "", fmt.Errorf("missing required variables for %s: %s", pt.ID, strings.Join(missing, ", "))
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
