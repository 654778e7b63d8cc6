package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "flash"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"` // success, info, warning or danger
	Message string `json:"message"`
}

// SetFlash appends a message to the flash cookie.
func SetFlash(c *gin.Context, kind, message string) {
	flashes := readFlashes(c)
	flashes = append(flashes, Flash{Kind: kind, Message: message})
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	value := base64.RawURLEncoding.EncodeToString(raw)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, value, 60, "/", "", false, true)
	// make the message visible to a render in this same request
	c.Request.AddCookie(&http.Cookie{Name: flashCookie, Value: value})
}

// PopFlashes returns pending messages and clears the cookie.
func PopFlashes(c *gin.Context) []Flash {
	flashes := readFlashes(c)
	if len(flashes) > 0 {
		c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	}
	return flashes
}

func readFlashes(c *gin.Context) []Flash {
	var value string
	// the newest cookie wins when SetFlash ran earlier in this request
	for _, ck := range c.Request.Cookies() {
		if ck.Name == flashCookie {
			value = ck.Value
		}
	}
	if value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}
