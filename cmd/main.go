package main

import (
	"github.com/corray333/backend-labs/foodorder/internal/app"
	"github.com/corray333/backend-labs/foodorder/internal/config"
)

//	@title						Food Order API
//	@version					1.0
//	@description				Cart, order lifecycle and payment reconciliation.
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@securityDefinitions.apikey	OperatorToken
//	@in							header
//	@name						Authorization
func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
