package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/internal/svcctx"
)

// GetChapterEndpoint handles GET /api/books/{id}/chapters/{number}.
type GetChapterEndpoint struct{}

func (e *GetChapterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/chapters/{number}", e.handler
}

func (e *GetChapterEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get chapter text
//	@Description	Get the extracted plain text of one chapter
//	@Tags			books
//	@Produce		plain
//	@Param			id		path		int	true	"Book ID"
//	@Param			number	path		int	true	"Chapter number (0-based)"
//	@Success		200		{string}	string
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/books/{id}/chapters/{number} [get]
func (e *GetChapterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	number, ok := parseChapterNumber(r, "number")
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("book %d has no chapter %s", id, r.PathValue("number")))
		return
	}

	if serveCached(w, r, contentTypeText) {
		return
	}

	text, err := svcctx.RepoFrom(r.Context()).GetChapterText(r.Context(), id, number)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeCachedText(w, r, text)
}

func (e *GetChapterEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chapter <book-id> <number>",
		Short: "Print a chapter's text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			text, err := client.GetText(cmd.Context(), "/api/books/"+args[0]+"/chapters/"+args[1])
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}
