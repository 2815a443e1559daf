// Package schema assembles the read-only GraphQL schema over account data.
package schema

import (
	"github.com/echolearn/echolearn-backend/graphql/modules/users"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/graphql-go/graphql"
)

// NewSchema builds the root query from the module fields
func NewSchema(svc *auth.Service) (graphql.Schema, error) {
	fields := graphql.Fields{}
	for name, field := range users.GetQueryFields(svc) {
		fields[name] = field
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: fields,
		}),
	})
}
