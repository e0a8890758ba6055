package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/internal/store"
	"biblio/internal/svcctx"
)

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get book by ID
//	@Description	Get a book with its author and full chapter listing
//	@Tags			books
//	@Produce		json
//	@Param			id	path		int	true	"Book ID"
//	@Success		200	{object}	store.BookChapters
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}

	if serveCached(w, r, contentTypeJSON) {
		return
	}

	book, err := svcctx.RepoFrom(r.Context()).GetBook(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeCachedJSON(w, r, book)
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "books-get <id>",
		Short: "Get a book with its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var book store.BookChapters
			if err := client.Get(cmd.Context(), "/api/books/"+args[0], &book); err != nil {
				return err
			}
			return api.Output(book)
		},
	}
}
