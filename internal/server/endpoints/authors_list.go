package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/internal/paginate"
	"biblio/internal/store"
	"biblio/internal/svcctx"
)

// ListAuthorsEndpoint handles GET /api/authors.
type ListAuthorsEndpoint struct{}

func (e *ListAuthorsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/authors", e.handler
}

func (e *ListAuthorsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List authors
//	@Description	List all authors with their book counts, paginated
//	@Tags			authors
//	@Produce		json
//	@Param			page	query		int	false	"Page number (1-based)"
//	@Param			limit	query		int	false	"Page size (1-100)"
//	@Success		200		{object}	paginate.Page[store.AuthorInfo]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/authors [get]
func (e *ListAuthorsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid pagination parameters")
		return
	}

	if serveCached(w, r, contentTypeJSON) {
		return
	}

	authors, err := svcctx.RepoFrom(r.Context()).ListAuthors(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	result, err := paginate.NewPage(authors, page, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeCachedJSON(w, r, result)
}

func (e *ListAuthorsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "authors-list",
		Short: "List authors",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/authors?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
			var result paginate.Page[store.AuthorInfo]
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", paginate.DefaultLimit, "Page size")
	return cmd
}
