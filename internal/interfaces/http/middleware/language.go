package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/i18n"
)

const (
	// LanguageKey holds the language.Tag chosen for the response
	LanguageKey = "language"
	// LocalizerKey holds the *i18n.Localizer
	LocalizerKey = "localizer"
)

// Language picks the response language from Accept-Language
func Language(localizer *i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := localizer.Match(c.GetHeader("Accept-Language"))
		c.Set(LanguageKey, tag)
		c.Set(LocalizerKey, localizer)
		c.Header("Content-Language", tag.String())
		c.Next()
	}
}

// GetLanguage returns the response language, English when Language did
// not run
func GetLanguage(c *gin.Context) language.Tag {
	if v, ok := c.Get(LanguageKey); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return language.English
}

// Translate renders key in the response language
func Translate(c *gin.Context, key storefront.MessageKey) string {
	if l := getLocalizer(c); l != nil {
		return l.Text(GetLanguage(c), key)
	}
	return key.Default()
}

// TranslateFailure renders a failure's message in the response language
func TranslateFailure(c *gin.Context, f *storefront.Failure) string {
	if l := getLocalizer(c); l != nil {
		return l.FailureMessage(GetLanguage(c), f)
	}
	return f.Message
}

func getLocalizer(c *gin.Context) *i18n.Localizer {
	if v, ok := c.Get(LocalizerKey); ok {
		if l, ok := v.(*i18n.Localizer); ok {
			return l
		}
	}
	return nil
}
