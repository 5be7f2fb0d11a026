package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/roadcap/internal/core/routeview"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	strokeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stroke",
		Fields: graphql.Fields{
			"color":   &graphql.Field{Type: graphql.String},
			"weight":  &graphql.Field{Type: graphql.Int},
			"opacity": &graphql.Field{Type: graphql.Float},
			"pattern": &graphql.Field{Type: graphql.NewList(graphql.Int)},
		},
	})

	segmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Segment",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.Int},
			"name":     &graphql.Field{Type: graphql.String},
			"status":   &graphql.Field{Type: graphql.String},
			"stroke":   &graphql.Field{Type: strokeType},
			"path":     &graphql.Field{Type: graphql.NewList(geoPointType)},
			"polyline": &graphql.Field{Type: graphql.String},
			"midpoint": &graphql.Field{Type: geoPointType},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"key":           &graphql.Field{Type: graphql.String},
			"position":      &graphql.Field{Type: geoPointType},
			"symbol":        &graphql.Field{Type: graphql.String},
			"scale":         &graphql.Field{Type: graphql.Int},
			"fill":          &graphql.Field{Type: graphql.String},
			"stroke_color":  &graphql.Field{Type: graphql.String},
			"stroke_weight": &graphql.Field{Type: graphql.Int},
			"title":         &graphql.Field{Type: graphql.String},
			"segment_id":    &graphql.Field{Type: graphql.Int},
		},
	})

	alternativeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Alternative",
		Fields: graphql.Fields{
			"key":      &graphql.Field{Type: graphql.String},
			"index":    &graphql.Field{Type: graphql.Int},
			"name":     &graphql.Field{Type: graphql.String},
			"status":   &graphql.Field{Type: graphql.String},
			"stroke":   &graphql.Field{Type: strokeType},
			"path":     &graphql.Field{Type: graphql.NewList(geoPointType)},
			"polyline": &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.String},
			"duration": &graphql.Field{Type: graphql.String},
		},
	})

	popupType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Popup",
		Fields: graphql.Fields{
			"kind":   &graphql.Field{Type: graphql.String},
			"anchor": &graphql.Field{Type: geoPointType},
			"title":  &graphql.Field{Type: graphql.String},
			"status": &graphql.Field{Type: graphql.String},
			"lines":  &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	legendType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Legend",
		Fields: graphql.Fields{
			"header": &graphql.Field{Type: graphql.String},
			"items": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "LegendItem",
				Fields: graphql.Fields{
					"title": &graphql.Field{Type: graphql.String},
					"color": &graphql.Field{Type: graphql.String},
					"shape": &graphql.Field{Type: graphql.String},
				},
			}))},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: geoPointType},
			"zoom":   &graphql.Field{Type: graphql.Int},
		},
	})

	sceneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Scene",
		Fields: graphql.Fields{
			"generation":   &graphql.Field{Type: graphql.Int},
			"revision":     &graphql.Field{Type: graphql.Int},
			"phase":        &graphql.Field{Type: graphql.String},
			"segments":     &graphql.Field{Type: graphql.NewList(segmentType)},
			"markers":      &graphql.Field{Type: graphql.NewList(markerType)},
			"alternatives": &graphql.Field{Type: graphql.NewList(alternativeType)},
			"popup":        &graphql.Field{Type: popupType},
			"legend":       &graphql.Field{Type: legendType},
			"viewport":     &graphql.Field{Type: viewportType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"view": &graphql.Field{
				Type: sceneType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					scene, err := deps.Views.Scene(id)
					if err != nil {
						return nil, err
					}
					return toMap(scene)
				},
			},
			"legend": &graphql.Field{
				Type: legendType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return toMap(routeview.DefaultLegend())
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// toMap flattens a value through its JSON form so the default resolvers
// see plain maps keyed by the JSON field names.
func toMap(v any) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
