package cli

import (
	"fmt"

	"github.com/fahmaliyi/passvault/vault"
)

func (r *REPL) handleAdd() error {
	fmt.Fprint(r.out, "\n--- Add New Entry ---\n")

	url, err := prompt(r.in, r.out, "URL: ")
	if err != nil {
		return err
	}
	username, err := prompt(r.in, r.out, "Username: ")
	if err != nil {
		return err
	}
	password, err := r.secret("Password (blank to generate): ")
	if err != nil {
		return err
	}

	generated := password == ""
	if generated {
		password, err = vault.GeneratePassword(r.genLength, r.genSymbols)
		if err != nil {
			return err
		}
	}

	if _, err := r.session.Add(url, username, password); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Entry added!")
	if generated {
		return r.copy(password, "Generated password")
	}
	return nil
}

// handleUpdate prompts for each field; a blank answer keeps the current value.
func (r *REPL) handleUpdate(id string) error {
	cur, err := r.find(id)
	if err != nil {
		return err
	}

	var upd vault.EntryUpdate
	url, err := prompt(r.in, r.out, fmt.Sprintf("URL [%s]: ", cur.URL))
	if err != nil {
		return err
	}
	if url != "" && url != cur.URL {
		upd.URL = &url
	}

	username, err := prompt(r.in, r.out, fmt.Sprintf("Username [%s]: ", cur.Username))
	if err != nil {
		return err
	}
	if username != "" && username != cur.Username {
		upd.Username = &username
	}

	password, err := r.secret("Password (blank to keep): ")
	if err != nil {
		return err
	}
	if password != "" {
		upd.Password = &password
	}

	if upd.URL == nil && upd.Username == nil && upd.Password == nil {
		fmt.Fprintln(r.out, "Nothing changed.")
		return nil
	}
	if _, err := r.session.Update(id, upd); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Entry updated!")
	return nil
}
