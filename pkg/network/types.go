package network

import "context"

// EdgeID is the interned identifier of an edge inside a registry. Routes only
// ever hold EdgeIDs, the registry owns the edges themselves.
type EdgeID uint32

type Edge struct {
	ID   EdgeID `groups:"basic,detailed"`
	Name string `groups:"basic,detailed"`
	From string `groups:"detailed"`
	To   string `groups:"detailed"`
}

type VehicleType struct {
	ID       string  `groups:"basic,detailed"`
	Length   float64 `groups:"detailed"`
	MaxSpeed float64 `groups:"detailed"`
}

// DataSource identifies which scenario import produced a record
type DataSource struct {
	OriginalFormat string `groups:"internal"`
	Dataset        string `groups:"internal"`
	Identifier     string `groups:"internal"`
}

// Route is one weighted alternative inside an AlternativeSet
type Route struct {
	ID          string   `groups:"basic,detailed"`
	Edges       []EdgeID `groups:"detailed"`
	Cost        float64  `groups:"basic,detailed"`
	Probability float64  `groups:"basic,detailed"`
}

// AlternativeSet is the weighted choice set offered to a single vehicle. The
// Gawron coefficients are carried through untouched for the assignment step.
type AlternativeSet struct {
	ID         string   `groups:"basic,detailed"`
	Routes     []*Route `groups:"basic,detailed"`
	LastUsed   int      `groups:"detailed"`
	GawronBeta float64  `groups:"detailed"`
	GawronA    float64  `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}

type Vehicle struct {
	ID          string       `groups:"basic,detailed"`
	RouteDefRef string       `groups:"basic,detailed"`
	Depart      int32        `groups:"basic,detailed"`
	Type        *VehicleType `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}

type EdgeRegistry interface {
	GetEdge(name string) (EdgeID, bool)
}

type EdgeNamer interface {
	EdgeNames(edges []EdgeID) []string
}

// Sink receives everything a route loader produces
type Sink interface {
	EdgeRegistry
	AddRouteDef(ctx context.Context, set *AlternativeSet) error
	AddVehicle(ctx context.Context, id string, vehicle *Vehicle) error
	DefaultVehicleType() *VehicleType
}

// Emitter forwards accepted records to an outside destination such as a
// database or a queue.
type Emitter interface {
	EmitRouteDef(ctx context.Context, names EdgeNamer, set *AlternativeSet) error
	EmitVehicle(ctx context.Context, vehicle *Vehicle) error
	Flush(ctx context.Context) error
}
