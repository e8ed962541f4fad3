package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"bitbucket.org/bjitlabs/erpgate_backend/middlewares"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const productListCacheTTL = 60 * time.Second

type productView struct {
	Id        int             `json:"id"`
	Name      string          `json:"name"`
	Code      string          `json:"code,omitempty"`
	ImageURL  string          `json:"image_url"`
	OnHandQty decimal.Decimal `json:"on_hand_qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func toProductView(c *gin.Context, p erp.Product) productView {
	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	return productView{
		Id:        p.Id,
		Name:      p.Name,
		Code:      string(p.DefaultCode),
		ImageURL:  fmt.Sprintf("%s://%s/api/product/image/%d", scheme, c.Request.Host, p.Id),
		OnHandQty: p.QtyAvailable,
		UnitPrice: p.ListPrice,
	}
}

func productsHandler(store erp.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		// Read-through cache with expiry. The list tolerates short staleness;
		// no invalidation on ERP writes.
		cacheKey := fmt.Sprintf("Products:%d:%d", offset, limit)
		var products []erp.Product
		hit, err := config.GetRedisObject(cacheKey, &products)
		if err != nil {
			config.LogError(logger, "productHandlers.go", "productsHandler", "GetRedisObject", cacheKey, err)
		}
		if !hit {
			products, err = store.ListProducts(c.Request.Context(), offset, limit)
			if err != nil {
				config.LogError(logger, "productHandlers.go", "productsHandler", "ListProducts", cacheKey, err)
				respondError(c, err)
				return
			}
			if err := config.SetRedisObject(cacheKey, products, productListCacheTTL); err != nil {
				config.LogError(logger, "productHandlers.go", "productsHandler", "SetRedisObject", cacheKey, err)
			}
		}

		views := make([]productView, 0, len(products))
		for _, p := range products {
			views = append(views, toProductView(c, p))
		}
		c.JSON(http.StatusOK, gin.H{
			"products": views,
			"offset":   offset,
			"limit":    limit,
		})
	}
}

func productDetailHandler(store erp.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		product, err := store.GetProduct(c.Request.Context(), id)
		if err == erp.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		if err != nil {
			config.LogError(logger, "productHandlers.go", "productDetailHandler", "GetProduct", id, err)
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, toProductView(c, *product))
	}
}

// productImageHandler sits outside the access-key group because <img> tags
// cannot set headers: the key is accepted from either the header or the
// api_key query parameter. A bad or missing key answers 404, same as a
// missing product, so the endpoint does not confirm which ids exist.
func productImageHandler(store erp.ProductStore, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			presented = c.Query("api_key")
		}
		if !middlewares.KeyMatches(cfg.APIAccessKey, presented) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		data, err := store.ProductImage(c.Request.Context(), id)
		if err == erp.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			// Dependency failures answer 404 too; this endpoint never
			// confirms which ids exist.
			config.LogError(logger, "productHandlers.go", "productImageHandler", "ProductImage", id, err)
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		if c.Query("size") == "thumb" {
			img, err := imaging.Decode(bytes.NewReader(data))
			if err != nil {
				config.LogError(logger, "productHandlers.go", "productImageHandler", "imaging.Decode", id, err)
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
				config.LogError(logger, "productHandlers.go", "productImageHandler", "imaging.Encode", id, err)
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
			return
		}

		c.Data(http.StatusOK, http.DetectContentType(data), data)
	}
}
