package usecase

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// gravatarURL derives the default avatar for a fresh account from the email
// hash, so every user has an image before uploading one.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", sum)
}
