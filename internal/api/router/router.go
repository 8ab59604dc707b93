package router

import (
	"github.com/wb-go/wbf/ginext"

	"calremind/internal/api/handlers/notification"
	"calremind/internal/api/handlers/reminder"
	"calremind/internal/hub"
	"calremind/internal/middlewares"
)

func New(nh *notification.Handler, rh *reminder.Handler, ws *hub.Hub) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")
	{
		api.GET("/ws", ws.ServeWS)

		notifications := api.Group("/notifications")
		{
			notifications.GET("/", nh.ListMine)
			notifications.GET("/:id/status", nh.GetStatus)
		}

		api.POST("/events/:id/reminders", rh.Create)
		api.DELETE("/reminders/:id", rh.Delete)

		admin := api.Group("/admin")
		{
			admin.GET("/notifications", nh.ListAll)
		}
	}

	return e
}
