// Package i18n renders user-facing messages in the shopper's language.
package i18n

import (
	"fmt"

	"github.com/storefront/backend/internal/domain/storefront"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var arabic = map[storefront.MessageKey]string{
	storefront.MsgNotAuthenticated:     "يرجى تسجيل الدخول للمتابعة.",
	storefront.MsgNoCartForAccount:     "لا توجد سلة مشتريات مرتبطة بحسابك. تأكد من إضافة منتجات إلى السلة ثم أعد المحاولة.",
	storefront.MsgGenericRetry:         "حدث خطأ أثناء معالجة الطلب. حاول مرة أخرى لاحقًا.",
	storefront.MsgOrderCreateFailed:    "فشل إنشاء الطلب",
	storefront.MsgCheckoutSessionFail:  "فشل إنشاء جلسة الدفع",
	storefront.MsgSelectAddress:        "يرجى اختيار عنوان التوصيل.",
	storefront.MsgSelectPayment:        "يرجى اختيار طريقة الدفع.",
	storefront.MsgEmptyCart:            "لا توجد منتجات في السلة لهذا الحساب. أعد المحاولة أو اضغط تحديث.",
	storefront.MsgQuantityBelowOne:     "يجب أن تكون الكمية 1 على الأقل.",
	storefront.MsgQuantityExceedsStock: "الكمية المطلوبة أكبر من المخزون المتاح.",
	storefront.MsgLineBusy:             "جارٍ تحديث هذا المنتج.",
	storefront.MsgSubmissionInProgress: "جارٍ إرسال طلبك بالفعل.",
	storefront.MsgNoSampleProduct:      "لا توجد منتجات متاحة لإنشاء سلة تجريبية.",
	storefront.MsgSampleCartDisabled:   "السلة التجريبية غير متاحة.",
	storefront.MsgInvalidAddress:       "العنوان غير مكتمل.",
	storefront.MsgUnknownAddress:       "العنوان المحدد لم يعد موجودًا.",
	storefront.MsgMissingProduct:       "معرّف المنتج مطلوب.",
	storefront.MsgOrderNotFound:        "تعذر العثور على الطلب.",
}

// Localizer picks a supported language for a request and renders message
// keys in it
type Localizer struct {
	catalog   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
	fallback  language.Tag
}

// NewLocalizer builds the message catalog. defaultLang is used when the
// request states no usable preference.
func NewLocalizer(defaultLang string) (*Localizer, error) {
	fallback, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("i18n: invalid default language %q: %w", defaultLang, err)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range storefront.MessageKeys() {
		if err := b.SetString(language.English, string(key), key.Default()); err != nil {
			return nil, fmt.Errorf("i18n: register %s: %w", key, err)
		}
	}
	for key, text := range arabic {
		if err := b.SetString(language.Arabic, string(key), text); err != nil {
			return nil, fmt.Errorf("i18n: register %s: %w", key, err)
		}
	}

	// the matcher falls back to the first entry
	supported := []language.Tag{language.English, language.Arabic}
	base, _ := fallback.Base()
	if arBase, _ := language.Arabic.Base(); base == arBase {
		supported = []language.Tag{language.Arabic, language.English}
	}

	return &Localizer{
		catalog:   b,
		supported: supported,
		matcher:   language.NewMatcher(supported),
		fallback:  supported[0],
	}, nil
}

// Match resolves an Accept-Language header to a supported language
func (l *Localizer) Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return l.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return l.fallback
	}
	_, idx, _ := l.matcher.Match(tags...)
	return l.supported[idx]
}

// Text renders key in tag
func (l *Localizer) Text(tag language.Tag, key storefront.MessageKey) string {
	p := message.NewPrinter(tag, message.Catalog(l.catalog))
	return p.Sprintf(string(key))
}

// FailureMessage renders a failure for display. Backend text passed
// through verbatim is returned unchanged.
func (l *Localizer) FailureMessage(tag language.Tag, f *storefront.Failure) string {
	if f == nil {
		return ""
	}
	if f.Key == "" {
		return f.Message
	}
	return l.Text(tag, f.Key)
}

// Default returns the fallback language
func (l *Localizer) Default() language.Tag {
	return l.fallback
}
