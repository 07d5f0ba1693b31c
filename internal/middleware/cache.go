package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"canteen/internal/logger"
)

const cachePrefix = "canteen:cache"

// captureWriter keeps a copy of the body while forwarding it to the client.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// cacheKey scopes entries by group, route, query and caller so one staff
// member never sees another's filtered report.
func cacheKey(group string, c *gin.Context) string {
	who := "anon"
	if caller, ok := CallerFrom(c); ok {
		who = caller.UserID.Hex()
	}
	tail := strings.Join([]string{c.FullPath(), c.Request.URL.Path, c.Request.URL.RawQuery, who}, "|")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%s:%x", cachePrefix, group, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// ResponseCache serves GET responses from Redis for ttl. A nil client turns
// it into a pass-through.
func ResponseCache(rdb *redis.Client, group string, ttl time.Duration) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		key := cacheKey(group, c)

		if bs, err := rdb.Get(c.Request.Context(), key).Bytes(); err == nil {
			if status, hdr, body, ok := decodePayload(bs); ok {
				for k, vals := range hdr {
					if strings.EqualFold(k, "Content-Length") {
						continue
					}
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Header("X-Cache", "HIT")
				c.Data(status, hdr.Get("Content-Type"), body)
				c.Abort()
				return
			}
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Header("X-Cache", "MISS")
		c.Next()

		if cw.Status() != http.StatusOK {
			return
		}
		hdr := cw.Header().Clone()
		hdr.Del("X-Cache")
		hdr.Del(RequestIDHeader)
		payload, err := encodePayload(cw.Status(), hdr, cw.buf.Bytes())
		if err != nil {
			return
		}
		if err := rdb.SetEx(context.Background(), key, payload, ttl).Err(); err != nil {
			logger.For("cache").WithError(err).Warn("cache store failed")
		}
	}
}

// InvalidateCache removes every cached response of group.
func InvalidateCache(ctx context.Context, rdb *redis.Client, group string) error {
	if rdb == nil {
		return nil
	}
	iter := rdb.Scan(ctx, 0, fmt.Sprintf("%s:%s:*", cachePrefix, group), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}
