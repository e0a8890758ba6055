// Package docs provides generated OpenAPI documentation.
//
// Biblio API
//
//	@title			Biblio API
//	@version		1.0
//	@description	E-book library API for browsing books and authors, reading chapters, and searching inside books.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
//
//	@securityDefinitions.basic	BasicAuth
package docs

//go:generate swag init -g ../cmd/biblio/serve.go -o ./swagger --parseDependency --parseInternal
