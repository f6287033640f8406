package template

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"ident":   QuoteIdent,
	"literal": QuoteLiteral,
}

// ExecuteSqlTemplate reads the template called name from fsys and executes it with params.
// Templates can use {{ident .X}} for identifiers and {{literal .X}} for string literals.
func ExecuteSqlTemplate(fsys fs.FS, name string, params map[string]any) (string, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to read template file %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// QuoteIdent quotes a SQL identifier. Dotted names are quoted per part.
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// QuoteLiteral quotes a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
