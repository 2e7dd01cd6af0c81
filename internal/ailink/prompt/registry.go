package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves prompt definitions by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry stores prompts by slug.
type InMemoryRegistry struct {
	prompts map[string]*Prompt
}

// NewRegistry builds a registry. Two prompts with the same slug are an
// error; use With to replace a definition deliberately.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{prompts: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug, err := slugOf(p)
		if err != nil {
			return nil, err
		}
		if _, dup := reg.prompts[slug]; dup {
			return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
		}
		reg.prompts[slug] = p
	}
	return reg, nil
}

// With returns a copy of r in which overrides replace prompts sharing
// their slug and add the rest.
func (r *InMemoryRegistry) With(overrides []*Prompt) (*InMemoryRegistry, error) {
	out := &InMemoryRegistry{prompts: make(map[string]*Prompt)}
	if r != nil {
		for slug, p := range r.prompts {
			out.prompts[slug] = p
		}
	}
	for _, p := range overrides {
		if p == nil {
			continue
		}
		slug, err := slugOf(p)
		if err != nil {
			return nil, err
		}
		out.prompts[slug] = p
	}
	return out, nil
}

// Get returns the prompt for slug.
func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	p, ok := r.prompts[slug]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found (available: %s)", slug, strings.Join(r.Slugs(), ", "))
	}
	return p, nil
}

// Slugs returns the registered slugs, sorted.
func (r *InMemoryRegistry) Slugs() []string {
	if r == nil {
		return nil
	}
	slugs := make([]string, 0, len(r.prompts))
	for slug := range r.prompts {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	slugs := r.Slugs()
	out := make([]*Prompt, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, r.prompts[slug])
	}
	return out
}

func slugOf(p *Prompt) (string, error) {
	slug := strings.TrimSpace(p.Config.Slug)
	if slug == "" {
		return "", fmt.Errorf("prompt %s missing slug", p.Source)
	}
	return slug, nil
}
