// Package users defines the GraphQL types for account data.
package users

import (
	"github.com/graphql-go/graphql"
)

// PreferencesType represents the reading settings of an account
var PreferencesType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Preferences",
	Fields: graphql.Fields{
		"theme":    &graphql.Field{Type: graphql.String},
		"fontSize": &graphql.Field{Type: graphql.Int},
		"language": &graphql.Field{Type: graphql.String},
	},
})

// UserType is the client-facing view of an account. It mirrors
// model.SafeUser and has no credential fields.
var UserType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"email":         &graphql.Field{Type: graphql.String},
		"firstName":     &graphql.Field{Type: graphql.String},
		"lastName":      &graphql.Field{Type: graphql.String},
		"role":          &graphql.Field{Type: graphql.String},
		"isActive":      &graphql.Field{Type: graphql.Boolean},
		"emailVerified": &graphql.Field{Type: graphql.Boolean},
		"lastLoginAt":   &graphql.Field{Type: graphql.DateTime},
		"preferences":   &graphql.Field{Type: PreferencesType},
		"createdAt":     &graphql.Field{Type: graphql.DateTime},
		"updatedAt":     &graphql.Field{Type: graphql.DateTime},
	},
})

// PaginationType describes a page of a listing
var PaginationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Pagination",
	Fields: graphql.Fields{
		"page":  &graphql.Field{Type: graphql.Int},
		"limit": &graphql.Field{Type: graphql.Int},
		"total": &graphql.Field{Type: graphql.Int},
		"pages": &graphql.Field{Type: graphql.Int},
	},
})

// UserListType is a page of users
var UserListType = graphql.NewObject(graphql.ObjectConfig{
	Name: "UserList",
	Fields: graphql.Fields{
		"users":      &graphql.Field{Type: graphql.NewList(UserType)},
		"pagination": &graphql.Field{Type: PaginationType},
	},
})

// RoleCountType is one row of the per-role breakdown
var RoleCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RoleCount",
	Fields: graphql.Fields{
		"role":  &graphql.Field{Type: graphql.String},
		"count": &graphql.Field{Type: graphql.Int},
	},
})

// UserStatsType summarizes the account population
var UserStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "UserStats",
	Fields: graphql.Fields{
		"total":    &graphql.Field{Type: graphql.Int},
		"active":   &graphql.Field{Type: graphql.Int},
		"inactive": &graphql.Field{Type: graphql.Int},
		"byRole":   &graphql.Field{Type: graphql.NewList(RoleCountType)},
	},
})
