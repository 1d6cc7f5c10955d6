package exploitdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"exploits/linux/local/1.cpp", "c++"},
		{"exploits/linux/local/2.c", "c"},
		{"exploits/linux/remote/3.sh", "sh"},
		{"exploits/multiple/remote/4.rb", "ruby"},
		{"exploits/windows/dos/5.pl", "perl"},
		{"exploit.py", "python"},
		{"exploits/php/webapps/6.php", "php"},
		{"exploits/hardware/7.txt", "texte"},
		{"exploits/jsp/webapps/8.jsp", "jsp"},
		{"exploits/go/9.go", "go"},
		{"exploits/nodejs/10.js", "javascript"},
		{"exploits/windows/11.exe", "inconnu"},
		{"exploits/linux/12", "inconnu"},
		{"", "inconnu"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, LanguageFor(tt.path))
		})
	}
}
