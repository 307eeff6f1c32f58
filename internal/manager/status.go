package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/ollama"
)

// Status is one row of the provider status sweep.
type Status struct {
	Type       provider.Type
	Name       string
	Active     bool
	Configured bool
	Connected  bool
	// Error explains why the provider is unconfigured or unreachable.
	Error string
}

// ProviderStatus reports, for every known provider, whether it is configured
// and, if so, whether it answers a connection test. Providers are probed in
// parallel and one failing probe never aborts the sweep.
func (m *Manager) ProviderStatus(ctx context.Context) []Status {
	m.mu.RLock()
	settings := m.settings
	active := m.active
	table := m.providers
	m.mu.RUnlock()

	configs := settings.ProviderConfigs()
	types := provider.KnownTypes()
	out := make([]Status, len(types))

	var g errgroup.Group
	for i, typ := range types {
		st := &out[i]
		st.Type = typ
		st.Active = typ == active

		cfg := configs[typ]
		st.Name = cfg.Name
		p, built := table[typ]
		var v provider.ValidationResult
		if built {
			v = p.ValidateConfig()
		} else {
			v = provider.ValidateConfig(cfg)
		}
		if !v.Valid {
			st.Error = strings.Join(v.Errors, "; ")
			continue
		}
		if !built {
			st.Error = "not configured"
			continue
		}
		st.Configured = true

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					st.Connected = false
					st.Error = fmt.Sprintf("status check panicked: %v", r)
				}
			}()
			ctx, cancel := context.WithTimeout(ctx, m.timeout())
			defer cancel()

			st.Connected = p.TestConnection(ctx)
			if !st.Connected {
				st.Error = "connection test failed"
			}
			if lister, ok := p.(provider.ModelLister); ok && p.Config().IsLocal {
				if _, err := lister.ListModels(ctx); errors.Is(err, ollama.ErrNoModelsInstalled) {
					st.Error = "no models installed"
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
