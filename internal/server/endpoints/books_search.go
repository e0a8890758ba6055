package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/internal/paginate"
	"biblio/internal/search"
	"biblio/internal/store"
	"biblio/internal/svcctx"
)

// SearchResponse is a page of search hits with the searched book attached.
type SearchResponse struct {
	BookID     int               `json:"book_id"`
	BookName   string            `json:"book_name"`
	BookAuthor string            `json:"book_author"`
	Results    []store.SearchHit `json:"results"`
	PageNumber int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// SearchBookEndpoint handles GET /api/books/{id}/search.
type SearchBookEndpoint struct{}

func (e *SearchBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/search", e.handler
}

func (e *SearchBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Search inside a book
//	@Description	Find a phrase in a book's chapters. Matched terms in snippets are wrapped in <<...>> markers.
//	@Tags			books
//	@Produce		json
//	@Param			id		path		int		true	"Book ID"
//	@Param			query	query		string	true	"Phrase to search for (at least 3 characters)"
//	@Param			page	query		int		false	"Page number (1-based)"
//	@Param			limit	query		int		false	"Page size (1-100)"
//	@Success		200		{object}	SearchResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/books/{id}/search [get]
func (e *SearchBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}

	query := r.URL.Query().Get("query")
	if utf8.RuneCountInString(query) < search.MinQueryLength {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("query must be at least %d characters", search.MinQueryLength))
		return
	}

	page, limit, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid pagination parameters")
		return
	}

	if serveCached(w, r, contentTypeJSON) {
		return
	}

	book, err := svcctx.RepoFrom(r.Context()).GetBookInfo(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	hits, err := svcctx.SearcherFrom(r.Context()).Search(r.Context(), id, query)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := SearchResponse{
		BookID:     book.ID,
		BookName:   book.Name,
		BookAuthor: book.Author.Name,
		Results:    []store.SearchHit{},
		PageNumber: page,
		Limit:      limit,
	}
	if len(hits) == 0 {
		// No matches is a successful empty result, not a missing page.
		writeCachedJSON(w, r, resp)
		return
	}

	result, err := paginate.NewPage(hits, page, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resp.Results = result.Items
	resp.TotalPages = result.TotalPages

	writeCachedJSON(w, r, resp)
}

func (e *SearchBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "search <book-id> <query>",
		Short: "Search for a phrase inside a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/books/" + args[0] + "/search?query=" + url.QueryEscape(args[1]) +
				"&page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
			var result SearchResponse
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
