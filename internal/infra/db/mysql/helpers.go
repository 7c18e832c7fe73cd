package mysql

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// erDupEntry is MySQL error 1062 (ER_DUP_ENTRY).
const erDupEntry = 1062

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}

// jsonOrEmpty keeps JSON columns valid: blank or malformed input becomes fallback.
func jsonOrEmpty(b []byte, fallback string) string {
	if len(b) == 0 || !json.Valid(b) {
		return fallback
	}
	return string(b)
}
