package admincli

import (
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetPassword prints prompt to w and reads a password without echo.
func GetPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// GetNewPassword asks twice and fails when the entries differ.
func GetNewPassword(w io.Writer) (string, error) {
	first, err := GetPassword(w, "New password")
	if err != nil {
		return "", err
	}
	second, err := GetPassword(w, "Repeat password")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}
