package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/pkg/geometry"
)

const gqlUserKey ctxKey = "graphql_user"

var errNoUser = errors.New("missing " + UserHeader)

func gqlUser(ctx context.Context) (string, error) {
	if u, ok := ctx.Value(gqlUserKey).(string); ok && u != "" {
		return u, nil
	}
	return "", errNoUser
}

// activitySource accepts both list elements and single-activity results.
func activitySource(src interface{}) (domain.Activity, bool) {
	switch a := src.(type) {
	case domain.Activity:
		return a, true
	case *domain.Activity:
		if a != nil {
			return *a, true
		}
	}
	return domain.Activity{}, false
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	activityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Activity",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"sport":            &graphql.Field{Type: graphql.String},
			"started_at":       &graphql.Field{Type: graphql.DateTime},
			"ended_at":         &graphql.Field{Type: graphql.DateTime},
			"total_distance_m": &graphql.Field{Type: graphql.Float},
			"center":           &graphql.Field{Type: geoPointType},
			"distance_text": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a, _ := activitySource(p.Source)
					return geometry.FormatDistance(a.TotalDistanceMeters), nil
				},
			},
			"polyline": &graphql.Field{
				Type:        graphql.String,
				Description: "Track encoded with the Google polyline algorithm",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a, _ := activitySource(p.Source)
					return geometry.EncodePolyline(a.Track), nil
				},
			},
		},
	})

	visitType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Visit",
		Fields: graphql.Fields{
			"activity_id":      &graphql.Field{Type: graphql.String},
			"sport":            &graphql.Field{Type: graphql.String},
			"started_at":       &graphql.Field{Type: graphql.DateTime},
			"ended_at":         &graphql.Field{Type: graphql.DateTime},
			"total_distance_m": &graphql.Field{Type: graphql.Float},
			"distance_m":       &graphql.Field{Type: graphql.Float},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "VisitSummary",
		Fields: graphql.Fields{
			"total_visits":     &graphql.Field{Type: graphql.Int},
			"total_distance_m": &graphql.Field{Type: graphql.Float},
			"recent_visits":    &graphql.Field{Type: graphql.NewList(visitType)},
			"by_sport": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "SportCount",
				Fields: graphql.Fields{
					"sport": &graphql.Field{Type: graphql.String},
					"count": &graphql.Field{Type: graphql.Int},
				},
			}))},
		},
	})

	visitsNearType := graphql.NewObject(graphql.ObjectConfig{
		Name: "VisitsNear",
		Fields: graphql.Fields{
			"location": &graphql.Field{Type: geoPointType},
			"radius_m": &graphql.Field{Type: graphql.Float},
			"visits":   &graphql.Field{Type: graphql.NewList(visitType)},
			"summary":  &graphql.Field{Type: summaryType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"activities": &graphql.Field{
				Type:        graphql.NewList(activityType),
				Description: "The caller's activities, most recent first",
				Args: graphql.FieldConfigArgument{
					"sport": &graphql.ArgumentConfig{Type: graphql.String},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					filter := domain.ActivityFilter{UserID: user, Limit: p.Args["limit"].(int)}
					if s, ok := p.Args["sport"].(string); ok && s != "" && s != "all" {
						filter.Sport = domain.ParseSport(s)
					}
					return deps.Activities.List(p.Context, filter)
				},
			},
			"activity": &graphql.Field{
				Type:        activityType,
				Description: "One of the caller's activities",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					return deps.Activities.Get(p.Context, user, p.Args["id"].(string))
				},
			},
			"visitsNear": &graphql.Field{
				Type:        visitsNearType,
				Description: "Past activities passing near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					at := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Visits.Near(p.Context, user, at, p.Args["radius"].(float64))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
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

		ctx := context.WithValue(c.UserContext(), gqlUserKey, userID(c))
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		return c.JSON(result)
	}
}
