package schema

import (
	"context"
	"testing"

	"github.com/echolearn/echolearn-backend/internal/store/memory"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	schema graphql.Schema
	admin  *model.User
	user   *model.User
	other  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	tokens, err := auth.NewTokens("test-secret", 0)
	require.NoError(t, err)
	svc := auth.NewService(auth.Deps{
		Users:  memory.New(),
		Hasher: auth.NewHasher(bcrypt.MinCost),
		Tokens: tokens,
	})

	create := func(email string, role model.Role) *model.User {
		u, err := svc.Credentials().Create(ctx, auth.NewAccount{
			Email: email, Password: "Abc12345!", FirstName: "Test", LastName: "User", Role: role,
		})
		require.NoError(t, err)
		return u
	}

	s, err := NewSchema(svc)
	require.NoError(t, err)
	return &fixture{
		schema: s,
		admin:  create("admin@example.com", model.RoleAdmin),
		user:   create("lucy@example.com", model.RoleUser),
		other:  create("mike@example.com", model.RoleTeacher),
	}
}

func (f *fixture) query(as *model.User, q string, vars map[string]interface{}) *graphql.Result {
	ctx := context.Background()
	if as != nil {
		ctx = auth.WithUser(ctx, as)
	}
	return graphql.Do(graphql.Params{
		Schema:         f.schema,
		RequestString:  q,
		VariableValues: vars,
		Context:        ctx,
	})
}

func errorMessages(r *graphql.Result) []string {
	var out []string
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}

func TestMe(t *testing.T) {
	f := newFixture(t)

	r := f.query(f.user, `{ me { id email role preferences { theme fontSize } } }`, nil)
	require.Empty(t, r.Errors)
	assert.Equal(t, map[string]interface{}{
		"me": map[string]interface{}{
			"id":          f.user.ID,
			"email":       "lucy@example.com",
			"role":        "user",
			"preferences": map[string]interface{}{"theme": "light", "fontSize": 16},
		},
	}, r.Data)

	r = f.query(nil, `{ me { id } }`, nil)
	assert.Equal(t, []string{"Authentication required"}, errorMessages(r))
}

func TestUserLookup(t *testing.T) {
	f := newFixture(t)
	q := `query($id: ID!) { user(id: $id) { id email } }`

	r := f.query(f.user, q, map[string]interface{}{"id": f.user.ID})
	require.Empty(t, r.Errors)

	r = f.query(f.admin, q, map[string]interface{}{"id": f.user.ID})
	require.Empty(t, r.Errors)

	r = f.query(f.other, q, map[string]interface{}{"id": f.user.ID})
	assert.Equal(t, []string{"Access denied"}, errorMessages(r))

	r = f.query(f.admin, q, map[string]interface{}{"id": "missing"})
	assert.Equal(t, []string{"User not found"}, errorMessages(r))
}

func TestAdminQueries(t *testing.T) {
	f := newFixture(t)

	r := f.query(f.user, `{ users { pagination { total } } }`, nil)
	assert.Equal(t, []string{"Insufficient permissions"}, errorMessages(r))

	r = f.query(f.admin, `{ users(page: 1, limit: 2) { users { email } pagination { page limit total pages } } }`, nil)
	require.Empty(t, r.Errors)
	data := r.Data.(map[string]interface{})["users"].(map[string]interface{})
	assert.Len(t, data["users"], 2)
	assert.Equal(t, map[string]interface{}{"page": 1, "limit": 2, "total": 3, "pages": 2}, data["pagination"])

	r = f.query(f.admin, `{ users(query: "MIKE") { users { email } } }`, nil)
	require.Empty(t, r.Errors)
	data = r.Data.(map[string]interface{})["users"].(map[string]interface{})
	assert.Equal(t, []interface{}{map[string]interface{}{"email": "mike@example.com"}}, data["users"])

	r = f.query(f.admin, `{ users(limit: 500) { users { email } } }`, nil)
	assert.Equal(t, []string{"Invalid pagination parameters"}, errorMessages(r))

	r = f.query(f.admin, `{ userStats { total active inactive byRole { role count } } }`, nil)
	require.Empty(t, r.Errors)
	assert.Equal(t, map[string]interface{}{
		"userStats": map[string]interface{}{
			"total":    3,
			"active":   3,
			"inactive": 0,
			"byRole": []interface{}{
				map[string]interface{}{"role": "user", "count": 1},
				map[string]interface{}{"role": "admin", "count": 1},
				map[string]interface{}{"role": "teacher", "count": 1},
			},
		},
	}, r.Data)
}
