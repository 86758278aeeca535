// Package graphql exposes a read-only GraphQL view of routing state.
// Mutations stay on the REST surface so the validate-then-commit
// semantics live in exactly one place; this schema is for dashboards
// and ad-hoc queries that want nested reads in one round trip.
package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/Aaron-1990/line-routing/pkg/routing"
	"github.com/Aaron-1990/line-routing/pkg/store"
)

// NewSchema builds the query schema over the routing service.
func NewSchema(svc *store.Service) (graphql.Schema, error) {
	stepType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Step",
		Fields: graphql.Fields{
			"areaCode": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if step, ok := p.Source.(routing.Step); ok {
						return step.AreaCode, nil
					}
					return nil, nil
				},
			},
			"predecessors": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if step, ok := p.Source.(routing.Step); ok {
						return step.Predecessors, nil
					}
					return nil, nil
				},
			},
		},
	})

	validationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Validation",
		Fields: graphql.Fields{
			"isValid": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if result, ok := p.Source.(*routing.ValidationResult); ok {
						return result.IsValid, nil
					}
					return nil, nil
				},
			},
			"hasCycle": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if result, ok := p.Source.(*routing.ValidationResult); ok {
						return result.HasCycle, nil
					}
					return nil, nil
				},
			},
			"cycleNodes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if result, ok := p.Source.(*routing.ValidationResult); ok {
						return result.CycleNodes, nil
					}
					return nil, nil
				},
			},
			"hasOrphans": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if result, ok := p.Source.(*routing.ValidationResult); ok {
						return result.HasOrphans, nil
					}
					return nil, nil
				},
			},
			"orphanNodes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if result, ok := p.Source.(*routing.ValidationResult); ok {
						return result.OrphanNodes, nil
					}
					return nil, nil
				},
			},
		},
	})

	routingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Routing",
		Fields: graphql.Fields{
			"modelId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if mr, ok := p.Source.(*routing.ModelRouting); ok {
						return mr.ModelID, nil
					}
					return nil, nil
				},
			},
			"steps": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(stepType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if mr, ok := p.Source.(*routing.ModelRouting); ok {
						return mr.Steps, nil
					}
					return nil, nil
				},
			},
			"validation": &graphql.Field{
				Type: graphql.NewNonNull(validationType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					mr, ok := p.Source.(*routing.ModelRouting)
					if !ok {
						return nil, nil
					}
					return routing.ValidateSteps(mr.Steps)
				},
			},
			"order": &graphql.Field{
				// Nullable: a routing whose persisted state cannot be
				// ordered answers null here rather than failing the
				// whole query.
				Type: graphql.NewList(graphql.NewNonNull(graphql.String)),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					mr, ok := p.Source.(*routing.ModelRouting)
					if !ok {
						return nil, nil
					}
					g, err := routing.NewGraph(mr.Steps)
					if err != nil {
						return nil, nil
					}
					order, err := routing.TopologicalOrder(g)
					if err != nil {
						return nil, nil
					}
					return order, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "ok", nil
				},
			},
			"models": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return svc.ListModels(p.Context)
				},
			},
			"routing": &graphql.Field{
				Type: routingType,
				Args: graphql.FieldConfigArgument{
					"modelId": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.ID),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					modelID, ok := p.Args["modelId"].(string)
					if !ok || modelID == "" {
						return nil, fmt.Errorf("modelId argument is required")
					}
					mr, err := svc.FindByModel(p.Context, modelID)
					if err != nil {
						return nil, err
					}
					if mr == nil {
						// Absent routing is null, not an error.
						return nil, nil
					}
					return mr, nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}

	return schema, nil
}
