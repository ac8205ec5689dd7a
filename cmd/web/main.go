// @title           MentorHub API
// @version         1.0
// @description     Бэкенд менторской платформы: чаты, заявки на чат, ревью-сессии, уведомления.
// @host            localhost:4000
// @BasePath        /api/v1

package main

import "mentorhub_backend/internal/app"

func main() {
	app.Run()
}
