package main

import (
	"context"
	"net/http"

	"github.com/briefmux/briefmux/feed"
	"github.com/briefmux/briefmux/rss"
	"github.com/briefmux/briefmux/server"
	"github.com/briefmux/briefmux/server/middlewares"
	. "github.com/briefmux/briefmux/utils"
	"github.com/briefmux/briefmux/utils/dotenv"
	. "github.com/briefmux/briefmux/utils/flag"
	. "github.com/briefmux/briefmux/utils/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

func cleanup() {
	CloseProfiler()
	CloseTracer()
	Log.Info("api server shutdown")
}

func main() {
	defer cleanup()
	ParseFlags()
	InitLogger()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	db, err := GetDBConnection()
	if err != nil {
		Log.Fatal("failed to connect to database: ", err)
	}
	DatabaseSetupAndMigration(db)

	// The freshness cache is optional, run without it when redis is down.
	var cache *feed.FreshnessCache
	redisClient := GetRedisClient()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		Log.Warn("redis unreachable, freshness cache disabled: ", err)
	} else {
		cache = feed.NewFreshnessCache(redisClient)
	}

	feeds := feed.NewService(db, rss.NewClient(), cache)
	handler := server.NewHandler(db, feeds)

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()

	router.Use(cors.Default())
	router.Use(gintrace.Middleware(*ServiceName))
	if !*ByPassAuth {
		router.Use(middlewares.Auth())
	}

	router.POST("/sources", handler.AddSource)
	router.GET("/sources", handler.ListSources)
	router.DELETE("/sources/:id", handler.RemoveSource)
	router.POST("/articles/prepare", handler.PrepareArticles)
	router.POST("/newsletters", handler.CreateNewsletter)
	router.GET("/newsletters", handler.ListNewsletters)
	router.GET("/newsletters/:id", handler.GetNewsletter)
	router.DELETE("/newsletters/:id", handler.DeleteNewsletter)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	Log.Info("api server starts up")
	router.Run(":8080")
}
