package util

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func ContinueOrFatal(err error) {
	if err != nil {
		logrus.Fatal(err)
	}
}

// NewClientOrderID generates a locally unique order id before the exchange
// assigns its own. Dashes are stripped because some venues reject them in
// client ids.
func NewClientOrderID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
