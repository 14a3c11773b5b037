// @title           bankbang API
// @version         1.0
// @description     API银行帮: вакансии, опыт собеседований, рефералы (документация Swagger).
// @contact.name    bankbang
// @contact.email   support@bankbang.cn
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:4000
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	_ "bankbang/docs"
	"bankbang/internal/app"
)

func main() {
	app.Run()
}
