package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (t staticTokens) Token() string { return string(t) }

func TestList_QueryAndAuthHeader(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(ListResult{
			Page: 1, PerPage: 50, TotalItems: 1, TotalPages: 1,
			Items: []Record{{"id": "abc", "name": "Mug"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetTokenSource(staticTokens("tok-123"))

	res, err := c.List(context.Background(), CollectionProducts, 1, 50, ListOptions{
		Filter: `category = "kitchen"`,
		Sort:   "-created",
		Expand: "productID",
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Mug", res.Items[0].GetString("name"))

	assert.Equal(t, "/api/collections/products/records", gotPath)
	assert.Equal(t, "tok-123", gotAuth)
	assert.Equal(t, []string{`category = "kitchen"`}, gotQuery["filter"])
	assert.Equal(t, []string{"-created"}, gotQuery["sort"])
	assert.Equal(t, []string{"productID"}, gotQuery["expand"])
}

func TestList_NoTokenSourceSendsNoHeader(t *testing.T) {
	t.Parallel()

	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		json.NewEncoder(w).Encode(ListResult{TotalPages: 1})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).List(context.Background(), CollectionProducts, 1, 1, ListOptions{})
	require.NoError(t, err)
	assert.False(t, sawAuth)
}

func TestFullList_Paginates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		items := []Record{{"id": "p" + page}}
		json.NewEncoder(w).Encode(ListResult{
			Page: 1, PerPage: 1, TotalItems: 3, TotalPages: 3, Items: items,
		})
	}))
	defer srv.Close()

	all, err := NewClient(srv.URL).FullList(context.Background(), CollectionProducts, 1, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p1", all[0].ID())
	assert.Equal(t, "p3", all[2].ID())
}

func TestGetOne_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":404,"message":"The requested resource wasn't found."}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetOne(context.Background(), CollectionProducts, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusNotFound, ge.Status)
	assert.Equal(t, "The requested resource wasn't found.", ge.Message)
}

func TestDecodeError_FallsBackToStatusLine(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetOne(context.Background(), CollectionProducts, "x")
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusBadGateway, ge.Status)
	assert.NotEmpty(t, ge.Message)
}

func TestCreateAndUpdate_Methods(t *testing.T) {
	t.Parallel()

	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["id"] = "rec1"
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	rec, err := c.Create(context.Background(), CollectionCart, map[string]any{"quantity": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.GetInt("quantity"))

	_, err = c.Update(context.Background(), CollectionCart, "rec1", map[string]any{"quantity": 3})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/collections/cart/records",
		"PATCH /api/collections/cart/records/rec1",
	}, methods)
}

func TestAuthWithPassword(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/collections/users/auth-with-password", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a@b.co", body["identity"])
		json.NewEncoder(w).Encode(map[string]any{
			"token":  "jwt-token",
			"record": map[string]any{"id": "u1", "email": "a@b.co"},
		})
	}))
	defer srv.Close()

	auth, err := NewClient(srv.URL).AuthWithPassword(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", auth.Token)
	assert.Equal(t, "u1", auth.Record.ID())
}

func TestFileURL(t *testing.T) {
	t.Parallel()

	c := NewClient("https://store.example.com/")
	rec := Record{"id": "rec9", "collectionName": "products"}

	assert.Equal(t,
		"https://store.example.com/api/files/products/rec9/mug.png",
		c.FileURL(rec, "mug.png"))
	assert.Equal(t,
		"https://store.example.com/api/files/products/rec9/mug.png?thumb=150x150",
		c.FileURL(rec, "mug.png", WithThumb("150x150")))
	assert.Empty(t, c.FileURL(rec, ""))
}
