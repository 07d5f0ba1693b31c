package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/logger"
	"canteen/internal/models"
	"canteen/internal/store"
)

// Invalidator drops cached responses of the given groups after a write.
type Invalidator func(ctx context.Context, groups ...string)

func (inv Invalidator) drop(c *gin.Context, groups ...string) {
	if inv == nil {
		return
	}
	inv(c.Request.Context(), groups...)
}

// listEntries serves GET /<entity>/:theaterId. Inactive items are hidden
// unless ?includeInactive=true.
func listEntries[T models.Entry](repo store.Containers[T], route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		container, err := repo.Load(ctx, theater)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []T{}, "metadata": models.Metadata{}})
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		items := container.Items
		if !includeInactive(c) {
			items = container.Active()
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "metadata": container.Metadata})
	}
}

// setEntryActive serves the soft-delete and restore routes.
func setEntryActive[T models.Entry](repo store.Containers[T], route, idParam string, active bool, inv Invalidator, groups ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, idParam)
		if !ok {
			return
		}
		toggleEntry(c, route, repo, theater, id, active)
		if !c.IsAborted() {
			inv.drop(c, groups...)
		}
	}
}

func toggleEntry[T models.Entry](c *gin.Context, route string, repo store.Containers[T], theater, id primitive.ObjectID, active bool) {
	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := repo.SetActive(ctx, theater, id, active)
	if err != nil {
		respondServiceError(c, route, err)
		return
	}

	message := "deleted successfully"
	if active {
		message = "restored successfully"
	}
	logger.For("catalog").WithField("route", route).WithField("id", id.Hex()).Info(message)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": item})
}

func createEntry[T models.Entry](c *gin.Context, route string, repo store.Containers[T], theater primitive.ObjectID, item T) bool {
	ctx, cancel := requestContext(c)
	defer cancel()

	container, err := repo.Create(ctx, theater, item)
	if err != nil {
		respondServiceError(c, route, err)
		return false
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": item, "metadata": container.Metadata})
	return true
}

func updateEntry[T models.Entry](c *gin.Context, route string, repo store.Containers[T], theater, id primitive.ObjectID, fields map[string]any) bool {
	if len(fields) == 0 {
		respondWithError(c, http.StatusBadRequest, route, "no fields to update")
		return false
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := repo.Update(ctx, theater, id, fields)
	if err != nil {
		respondServiceError(c, route, err)
		return false
	}
	respondOK(c, http.StatusOK, item)
	return true
}
