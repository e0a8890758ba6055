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

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List books
//	@Description	List all books with their authors, paginated
//	@Tags			books
//	@Produce		json
//	@Param			page	query		int	false	"Page number (1-based)"
//	@Param			limit	query		int	false	"Page size (1-100)"
//	@Success		200		{object}	paginate.Page[store.Book]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid pagination parameters")
		return
	}

	if serveCached(w, r, contentTypeJSON) {
		return
	}

	books, err := svcctx.RepoFrom(r.Context()).ListBooks(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	result, err := paginate.NewPage(books, page, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeCachedJSON(w, r, result)
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "books-list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/books?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
			var result paginate.Page[store.Book]
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
