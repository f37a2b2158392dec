package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// SocialLink is a sidebar icon link. Icon is a Font Awesome brand name
// such as "github".
type SocialLink struct {
	Icon string `mapstructure:"icon" validate:"required"`
	Href string `mapstructure:"href" validate:"required"`
}

// ParseSocialLink splits "icon:url" on the first colon. The icon may be
// given bare ("github") or as a Font Awesome class ("fa-github").
func ParseSocialLink(raw string) (SocialLink, error) {
	i := strings.Index(raw, ":")
	if i <= 0 || i == len(raw)-1 {
		return SocialLink{}, fmt.Errorf("invalid link %q: expected icon:url", raw)
	}
	icon := NormalizeIcon(raw[:i])
	if icon == "" {
		return SocialLink{}, fmt.Errorf("invalid link %q: empty icon", raw)
	}
	return SocialLink{
		Icon: icon,
		Href: EnsureProtocol(raw[i+1:]),
	}, nil
}

// iconPrefixes are the Font Awesome style classes accepted in front of an
// icon name.
var iconPrefixes = []string{"fa-brands ", "fab ", "fa-solid ", "fas ", "fa-"}

// NormalizeIcon reduces "fa-github", "fab fa-github" and "github" to "github".
func NormalizeIcon(icon string) string {
	icon = strings.TrimSpace(icon)
	for _, prefix := range iconPrefixes {
		icon = strings.TrimSpace(strings.TrimPrefix(icon, prefix))
	}
	return icon
}

// EnsureProtocol prefixes https:// unless href already names http(s).
func EnsureProtocol(href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return "https://" + href
}

// StringToSocialLinkHookFunc decodes "icon:url" strings into SocialLink.
// Maps with icon/href keys decode normally.
func StringToSocialLinkHookFunc() mapstructure.DecodeHookFuncType {
	linkType := reflect.TypeOf(SocialLink{})
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != linkType {
			return data, nil
		}
		return ParseSocialLink(data.(string))
	}
}
