package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/internal/ingest"
	"biblio/internal/svcctx"
)

// maxUploadBytes bounds an uploaded archive at 512 MiB.
const maxUploadBytes = 512 << 20

// UploadBookEndpoint handles POST /api/books.
type UploadBookEndpoint struct{}

func (e *UploadBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books", e.handler
}

func (e *UploadBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a book
//	@Description	Upload an EPUB archive, extract its chapters, and add it to the library
//	@Tags			books
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"EPUB archive"
//	@Success		200		{object}	ingest.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BasicAuth
//	@Router			/api/books [post]
func (e *UploadBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	admin := svcctx.AdminFrom(r.Context())
	if !admin.Check(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="biblio", charset="UTF-8"`)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form file \"file\"")
		return
	}
	defer file.Close()

	result, err := svcctx.IngestorFrom(r.Context()).IngestUpload(r.Context(), header.Filename, file)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *UploadBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "upload <file.epub>",
		Short: "Upload an EPUB to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			client.SetBasicAuth(username, password)

			var result ingest.Result
			if err := client.Upload(cmd.Context(), "/api/books", args[0], &result); err != nil {
				return err
			}
			fmt.Printf("Added book %d: %s by %s (%d chapters)\n",
				result.BookID, result.Title, result.Author, result.Chapters)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password")
	return cmd
}
