package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/internal/store"
	"biblio/internal/svcctx"
)

// GetAuthorEndpoint handles GET /api/authors/{id}.
type GetAuthorEndpoint struct{}

func (e *GetAuthorEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/authors/{id}", e.handler
}

func (e *GetAuthorEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get author by ID
//	@Description	Get an author and all of their books
//	@Tags			authors
//	@Produce		json
//	@Param			id	path		int	true	"Author ID"
//	@Success		200	{object}	store.AuthorBooks
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/authors/{id} [get]
func (e *GetAuthorEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "author not found")
		return
	}

	if serveCached(w, r, contentTypeJSON) {
		return
	}

	author, err := svcctx.RepoFrom(r.Context()).GetAuthor(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeCachedJSON(w, r, author)
}

func (e *GetAuthorEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "authors-get <id>",
		Short: "Get an author with their books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var author store.AuthorBooks
			if err := client.Get(cmd.Context(), "/api/authors/"+args[0], &author); err != nil {
				return err
			}
			return api.Output(author)
		},
	}
}
