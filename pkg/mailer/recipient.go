package mailer

// Recipient is anything an email can be addressed to.
type Recipient interface {
	EmailAddress() string
	Identifier() string
}

// Address is a bare recipient without an account behind it.
type Address struct {
	Email string
	ID    string
}

func (a Address) EmailAddress() string { return a.Email }

func (a Address) Identifier() string { return a.ID }

type named interface {
	DisplayName() string
}

func displayName(r Recipient) string {
	if n, ok := r.(named); ok {
		return n.DisplayName()
	}
	return ""
}
