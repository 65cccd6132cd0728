// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

// Table names served by the list endpoints.
const (
	TableContent     = "content"
	TableCollections = "collections"
	TableMedia       = "media"
	TableUsers       = "users"
)

func field(column string, t ValueType) Field {
	return Field{Column: column, Type: t, Operators: DefaultOperators(t)}
}

func sortable(column string, t ValueType) Field {
	f := field(column, t)
	f.Sortable = true
	return f
}

// exact restricts a string field to equality checks.
func exact(column string) Field {
	return Field{Column: column, Type: TypeString, Operators: OperatorSet{OpEquals, OpIn}}
}

// DefaultTables returns the whitelists of the CMS tables.
func DefaultTables() []Table {
	return []Table{
		{
			Name:        TableContent,
			PrimaryKey:  "id",
			DefaultSort: "created_at",
			Columns: []string{"id", "collection_id", "title", "slug", "status", "data",
				"author_id", "created_at", "updated_at", "published_at"},
			Fields: map[string]Field{
				"id":            exact("id"),
				"collection_id": exact("collection_id"),
				"author_id":     exact("author_id"),
				"title":         sortable("title", TypeString),
				"slug":          field("slug", TypeString),
				"status":        exact("status"),
				"created_at":    sortable("created_at", TypeDate),
				"updated_at":    sortable("updated_at", TypeDate),
				"published_at":  sortable("published_at", TypeDate),
			},
		},
		{
			Name:        TableCollections,
			PrimaryKey:  "id",
			DefaultSort: "created_at",
			Columns: []string{"id", "name", "display_name", "description", "is_active",
				"created_at", "updated_at"},
			Fields: map[string]Field{
				"id":           exact("id"),
				"name":         sortable("name", TypeString),
				"display_name": sortable("display_name", TypeString),
				"is_active":    field("is_active", TypeBoolean),
				"created_at":   sortable("created_at", TypeDate),
				"updated_at":   sortable("updated_at", TypeDate),
			},
		},
		{
			Name:        TableMedia,
			PrimaryKey:  "id",
			DefaultSort: "uploaded_at",
			Columns: []string{"id", "filename", "original_name", "mime_type", "size",
				"width", "height", "folder", "r2_key", "alt", "uploaded_by", "uploaded_at"},
			Fields: map[string]Field{
				"id":          exact("id"),
				"filename":    sortable("filename", TypeString),
				"mime_type":   field("mime_type", TypeString),
				"folder":      field("folder", TypeString),
				"size":        sortable("size", TypeNumber),
				"width":       field("width", TypeNumber),
				"height":      field("height", TypeNumber),
				"uploaded_by": exact("uploaded_by"),
				"uploaded_at": sortable("uploaded_at", TypeDate),
			},
		},
		{
			Name:        TableUsers,
			PrimaryKey:  "id",
			DefaultSort: "created_at",
			Columns: []string{"id", "email", "username", "first_name", "last_name", "role",
				"is_active", "last_login_at", "created_at"},
			Fields: map[string]Field{
				"id":            exact("id"),
				"email":         field("email", TypeString),
				"username":      sortable("username", TypeString),
				"first_name":    field("first_name", TypeString),
				"last_name":     field("last_name", TypeString),
				"role":          exact("role"),
				"is_active":     field("is_active", TypeBoolean),
				"last_login_at": sortable("last_login_at", TypeDate),
				"created_at":    sortable("created_at", TypeDate),
			},
		},
	}
}

// DefaultRegistry builds the registry of the CMS tables.
func DefaultRegistry() *Registry {
	return MustNewRegistry(DefaultTables()...)
}
