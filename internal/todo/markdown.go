package todo

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterDelim separates the YAML metadata block from the markdown body.
const frontmatterDelim = "---"

// HasFrontmatter reports whether content starts with a frontmatter block.
func HasFrontmatter(content string) bool {
	trimmed := strings.TrimPrefix(content, "\uFEFF")
	return strings.HasPrefix(trimmed, frontmatterDelim+"\n") ||
		trimmed == frontmatterDelim ||
		strings.HasPrefix(trimmed, frontmatterDelim+"\r\n")
}

// ParseDocument splits a raw document into frontmatter and body.
//
// Documents without a frontmatter block are legal: the whole input becomes
// the body and a zero Frontmatter is returned with ok=false. A malformed
// YAML block is an error so that a bad write never destroys metadata
// silently.
func ParseDocument(content string) (fm Frontmatter, body string, ok bool, err error) {
	if !HasFrontmatter(content) {
		return Frontmatter{}, content, false, nil
	}

	trimmed := strings.TrimPrefix(content, "\uFEFF")
	rest := trimmed[len(frontmatterDelim):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return Frontmatter{}, content, false, fmt.Errorf("unterminated frontmatter block")
	}

	block := rest[:end]
	body = rest[end+len("\n"+frontmatterDelim):]
	body = strings.TrimPrefix(body, "\r\n")
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return Frontmatter{}, content, false, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return fm, body, true, nil
}

// SerializeDocument frames a body with a frontmatter block.
func SerializeDocument(fm Frontmatter, body string) (string, error) {
	out, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("failed to serialize frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelim)
	b.WriteString("\n")
	b.Write(out)
	b.WriteString(frontmatterDelim)
	b.WriteString("\n\n")
	b.WriteString(body)
	return b.String(), nil
}

// FromDocument builds a Todo from a fetched document.
//
// The version token doubles as the ID. A missing frontmatter title falls
// back to the filename-derived slug so every todo renders with something.
func FromDocument(path, content, version string) (*Todo, error) {
	fm, body, _, err := ParseDocument(content)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}

	title := fm.Title
	if title == "" {
		title = titleFromPath(path)
	}

	return &Todo{
		ID:          version,
		Title:       title,
		Content:     body,
		Frontmatter: fm,
		Path:        path,
		Version:     version,
	}, nil
}

// titleFromPath recovers a readable title from a storage path, stripping the
// date prefix and extension and restoring spaces.
func titleFromPath(path string) string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".md")
	if m := datePrefix.FindStringSubmatch(base); m != nil {
		base = base[len(m[0]):]
	}
	return strings.ReplaceAll(base, "-", " ")
}
