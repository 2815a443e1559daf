package restapi

import (
	"strings"

	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func graphQLError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(&graphql.Result{
		Errors: []gqlerrors.FormattedError{{Message: message}},
	})
}

// GraphQLHandler executes account queries against schema. Mount it behind
// auth.OptionalAuth so resolvers can see the caller.
func GraphQLHandler(schema graphql.Schema) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req graphQLRequest
		if err := c.BodyParser(&req); err != nil {
			return graphQLError(c, "Invalid request body")
		}
		if strings.TrimSpace(req.Query) == "" {
			return graphQLError(c, "Query is required")
		}

		ctx := auth.WithUser(c.UserContext(), auth.CurrentUser(c))
		return c.JSON(graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		}))
	}
}
