package planning

import "context"

// Repository persists planning master data and answers order lookups.
type Repository interface {
	// ReplaceOrigins replaces the loading bay table.
	ReplaceOrigins(ctx context.Context, origins []Origin) error

	// ReplaceDestinations replaces the plant table.
	ReplaceDestinations(ctx context.Context, destinations []Destination) error

	// ReplacePlans replaces the planning table.
	ReplacePlans(ctx context.Context, plans []Plan) error

	// ListOrders returns the distinct order codes, sorted.
	ListOrders(ctx context.Context) ([]string, error)

	// FindOrderRoute joins an order with its origin and destination.
	FindOrderRoute(ctx context.Context, order string) (*OrderRoute, error)
}

// Source fetches planning master data from the upstream planning API.
type Source interface {
	FetchOrigins(ctx context.Context) ([]Origin, error)
	FetchDestinations(ctx context.Context) ([]Destination, error)
	FetchPlans(ctx context.Context) ([]Plan, error)
}
