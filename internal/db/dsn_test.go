package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@host:5432/db?sslmode=disable", "postgres://u:p@host:5432/db?sslmode=disable"},
		{`"postgres://u:p@host/db"`, "postgres://u:p@host/db"},
		{"host=localhost user=u dbname=d", "host=localhost user=u dbname=d sslmode=disable"},
		{"host=localhost   user=u  dbname=d sslmode=require", "host=localhost user=u dbname=d sslmode=require"},
		{"", ""},
		{"not a dsn", "not a dsn"},
	}
	for _, c := range cases {
		if got := NormalizeDSN(c.in); got != c.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
