package main

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var errPasswordMismatch = errors.New("passwords do not match")

// hashPassword prints the bcrypt hash to put in ADMINPASSWORDHASH.
func (cli *commandLine) hashPassword(pwd, confirm []byte) error {
	if !bytes.Equal(pwd, confirm) {
		return errPasswordMismatch
	}
	hash, err := bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(hash))
	return nil
}
