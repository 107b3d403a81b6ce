package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, auth *AuthService, users UserRepository, verses VerseRepository, cache *Cache, db *pgxpool.Pool) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	r.Use(OriginRefererMiddleware(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, CollectSystemStatus(c.Request.Context(), db, cache, verses, startedAt))
	})

	r.POST("/users/signin", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
			return
		}

		user, err := auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, ErrValidation):
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			case errors.Is(err, ErrConflict):
				respondError(c, http.StatusConflict, "CONFLICT", "username or email already registered")
			default:
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "registration failed")
			}
			return
		}
		c.JSON(http.StatusCreated, user)
	})

	r.POST("/users/token", func(c *gin.Context) {
		// OAuth2 password-flow shape: form-encoded credentials in,
		// {access_token, token_type} out.
		var req struct {
			Username string `form:"username"`
			Password string `form:"password"`
		}
		if err := c.ShouldBind(&req); err != nil || req.Username == "" || req.Password == "" {
			respondUnauthorized(c, "username and password are required")
			return
		}

		token, err := auth.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				respondUnauthorized(c, "incorrect username or password")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login failed")
			return
		}
		c.JSON(http.StatusOK, token)
	})

	r.GET("/users/me", RequireAuth(auth), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			respondUnauthorized(c, "bearer token required")
			return
		}
		c.JSON(http.StatusOK, user.Public())
	})

	r.GET("/users/leaderboard", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if limit <= 0 || limit > 100 {
			limit = 10
		}
		ctx := c.Request.Context()

		key := fmt.Sprintf("leaderboard:%d", limit)
		var entries []LeaderboardEntry
		if !cache.Get(ctx, key, &entries) {
			var err error
			entries, err = users.Leaderboard(ctx, limit)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load leaderboard")
				return
			}
			cache.Set(ctx, key, entries)
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	})

	r.GET("/books", func(c *gin.Context) {
		books, err := Books()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "canon unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"books": books})
	})

	r.GET("/game/verse", func(c *gin.Context) {
		v, err := verses.Random(c.Request.Context())
		if err != nil {
			if errors.Is(err, ErrVerseNotFound) {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "verse table is empty")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to pick verse")
			return
		}
		c.JSON(http.StatusOK, v)
	})

	r.GET("/verses", func(c *gin.Context) {
		skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		list, err := verses.List(c.Request.Context(), skip, limit)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list verses")
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/verses/:book", func(c *gin.Context) {
		book, ok := resolveBook(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		key := fmt.Sprintf("verses:%d", book)
		var list []Verse
		if !cache.Get(ctx, key, &list) {
			var err error
			list, err = verses.ListByBook(ctx, book)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list verses")
				return
			}
			cache.Set(ctx, key, list)
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/verses/:book/:chapter", func(c *gin.Context) {
		book, ok := resolveBook(c)
		if !ok {
			return
		}
		chapter, ok := intParam(c, "chapter")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		key := fmt.Sprintf("verses:%d:%d", book, chapter)
		var list []Verse
		if !cache.Get(ctx, key, &list) {
			var err error
			list, err = verses.ListByChapter(ctx, book, chapter)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list verses")
				return
			}
			cache.Set(ctx, key, list)
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/verses/:book/:chapter/:verse", func(c *gin.Context) {
		book, ok := resolveBook(c)
		if !ok {
			return
		}
		chapter, ok := intParam(c, "chapter")
		if !ok {
			return
		}
		verse, ok := intParam(c, "verse")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		key := fmt.Sprintf("verse:%d:%d:%d", book, chapter, verse)
		var v Verse
		if cache.Get(ctx, key, &v) {
			c.JSON(http.StatusOK, v)
			return
		}
		got, err := verses.Get(ctx, book, chapter, verse)
		if err != nil {
			if errors.Is(err, ErrVerseNotFound) {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "verse not found")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load verse")
			return
		}
		cache.Set(ctx, key, got)
		c.JSON(http.StatusOK, got)
	})

	return r
}

// resolveBook accepts either a canonical book number or a book name
// ("43" and "John" both resolve to 43). Responds 400/404 itself and
// returns ok=false when the param is unusable.
func resolveBook(c *gin.Context) (int, bool) {
	raw := c.Param("book")
	if n, err := strconv.Atoi(raw); err == nil {
		if _, ok := BookByNumber(n); !ok {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "unknown book number")
			return 0, false
		}
		return n, true
	}
	if b, ok := BookByName(raw); ok {
		return b.Number, true
	}
	respondError(c, http.StatusNotFound, "NOT_FOUND", "unknown book")
	return 0, false
}

func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", name+" must be a positive integer")
		return 0, false
	}
	return n, true
}
