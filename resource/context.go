package resource

import "context"

type managerKey struct{}

// WithManager scopes m to ctx so collaborators deeper in the run, such as
// tool handlers, can reach the run's resource without global state.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// FromContext returns the Manager installed by WithManager.
func FromContext(ctx context.Context) (*Manager, bool) {
	m, ok := ctx.Value(managerKey{}).(*Manager)
	return m, ok && m != nil
}
