package users

import (
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/echolearn/echolearn-backend/util"
	"github.com/graphql-go/graphql"
)

// GetQueryFields returns the account queries to be mounted in the root schema
func GetQueryFields(svc *auth.Service) graphql.Fields {
	return graphql.Fields{
		"me": &graphql.Field{
			Type: UserType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveMe(p.Context)
			},
		},
		"user": &graphql.Field{
			Type: UserType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				return ResolveUser(p.Context, svc, id)
			},
		},
		// Admin only
		"users": &graphql.Field{
			Type: UserListType,
			Args: graphql.FieldConfigArgument{
				"page":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: util.DefaultPage},
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: util.DefaultLimit},
				"query": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				page := p.Args["page"].(int)
				limit := p.Args["limit"].(int)
				query := p.Args["query"].(string)
				return ResolveUsers(p.Context, svc, page, limit, query)
			},
		},
		"userStats": &graphql.Field{
			Type: UserStatsType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveStats(p.Context, svc)
			},
		},
	}
}
