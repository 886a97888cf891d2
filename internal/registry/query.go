package registry

import (
	"fmt"
	"strings"
)

const (
	// DefaultPageSize is used when a list request carries no usable limit.
	DefaultPageSize = 50

	// MaxPageSize caps both the list page size and the number of search
	// results. Prevents unbounded result sets from a single request.
	MaxPageSize = 100
)

const selectColumns = `did, endpoint, manifest, credentials,
	meta_capabilities, meta_organization, meta_country,
	meta_tags, meta_status, created_at, updated_at`

// ListQuery is the paginated list statement; $1 is the limit, $2 the offset.
var ListQuery = fmt.Sprintf(
	`SELECT %s FROM mcp_registry ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
	selectColumns,
)

// CountQuery returns the full unfiltered row count.
const CountQuery = `SELECT COUNT(*) FROM mcp_registry`

// GetByDIDQuery fetches a single entry by its primary key.
var GetByDIDQuery = fmt.Sprintf(
	`SELECT %s FROM mcp_registry WHERE did = $1 LIMIT 1`,
	selectColumns,
)

// UpsertQuery inserts an entry or, on a did conflict, overwrites every
// mutable column and refreshes updated_at. created_at is left untouched.
const UpsertQuery = `
INSERT INTO mcp_registry (
	did, endpoint, manifest, credentials,
	meta_capabilities, meta_organization, meta_country,
	meta_tags, meta_status
) VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8::jsonb, $9)
ON CONFLICT (did) DO UPDATE SET
	endpoint = EXCLUDED.endpoint,
	manifest = EXCLUDED.manifest,
	credentials = EXCLUDED.credentials,
	meta_capabilities = EXCLUDED.meta_capabilities,
	meta_organization = EXCLUDED.meta_organization,
	meta_country = EXCLUDED.meta_country,
	meta_tags = EXCLUDED.meta_tags,
	meta_status = EXCLUDED.meta_status,
	updated_at = now()`

// ListParams clamps the given page and limit to safe values and returns the
// effective page, limit, and row offset. Pages below 1 floor at 1; a
// non-positive limit falls back to DefaultPageSize and anything above
// MaxPageSize is capped.
func ListParams(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, (page - 1) * limit
}

// searchClause maps one filter value to a WHERE clause template. The
// placeholder index is filled in at build time so that values are always
// bound positionally, never interpolated.
type searchClause struct {
	template string
	value    string
}

// SearchQuery builds the conjunctive search statement for the given
// filters. Capability and tag test JSONB set containment on the stored
// sequence columns; organization and country test exact equality. Absent
// keys contribute no clause, so an empty filter set selects the whole
// table. Results are capped at MaxPageSize in recency order.
func SearchQuery(f SearchFilters) (string, []any) {
	clauses := make([]searchClause, 0, 4)
	if f.Capability != "" {
		clauses = append(clauses, searchClause{
			template: `meta_capabilities @> to_jsonb(ARRAY[$%d]::text[])`,
			value:    f.Capability,
		})
	}
	if f.Tag != "" {
		clauses = append(clauses, searchClause{
			template: `meta_tags @> to_jsonb(ARRAY[$%d]::text[])`,
			value:    f.Tag,
		})
	}
	if f.Organization != "" {
		clauses = append(clauses, searchClause{
			template: `meta_organization = $%d`,
			value:    f.Organization,
		})
	}
	if f.Country != "" {
		clauses = append(clauses, searchClause{
			template: `meta_country = $%d`,
			value:    f.Country,
		})
	}

	var sb strings.Builder
	sb.WriteString(`SELECT `)
	sb.WriteString(selectColumns)
	sb.WriteString(` FROM mcp_registry`)

	args := make([]any, 0, len(clauses))
	for i, c := range clauses {
		if i == 0 {
			sb.WriteString(` WHERE `)
		} else {
			sb.WriteString(` AND `)
		}
		fmt.Fprintf(&sb, c.template, i+1)
		args = append(args, c.value)
	}

	fmt.Fprintf(&sb, ` ORDER BY created_at DESC LIMIT %d`, MaxPageSize)

	return sb.String(), args
}
