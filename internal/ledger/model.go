package ledger

// Identity is what a contact lookup matches on.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
}

func (i Identity) DisplayName() string {
	return joinName(i.FirstName, i.LastName)
}

type PostalAddress struct {
	Street     string
	Barangay   string
	City       string
	Province   string
	PostalCode string
}

// ContactData is the customer payload pushed to the ledger.
type ContactData struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   *PostalAddress
}

func (d ContactData) DisplayName() string {
	return joinName(d.FirstName, d.LastName)
}

type ContactRef struct {
	ID   string
	Name string
}

type InvoiceFilter struct {
	// Status is one of the ledger's invoice statuses (draft, sent, overdue, paid, void). Empty means all.
	Status string
}

type Invoice struct {
	ID      string  `json:"invoice_id"`
	Number  string  `json:"invoice_number"`
	Status  string  `json:"status"`
	Date    string  `json:"date"`
	DueDate string  `json:"due_date"`
	Total   float64 `json:"total"`
	Balance float64 `json:"balance"`
}

type InvoicePage struct {
	Items   []Invoice `json:"items"`
	Page    int       `json:"page"`
	HasMore bool      `json:"has_more"`
	Total   int       `json:"total"`
}

// ---- wire types ----

type contactJSON struct {
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
}

type contactListResponse struct {
	Code     int           `json:"code"`
	Message  string        `json:"message"`
	Contacts []contactJSON `json:"contacts"`
}

type contactResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Contact contactJSON `json:"contact"`
}

type contactPersonJSON struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	IsPrimaryContact bool   `json:"is_primary_contact"`
}

type addressJSON struct {
	Address string `json:"address"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type contactRequest struct {
	ContactName    string              `json:"contact_name"`
	ContactType    string              `json:"contact_type"`
	ContactPersons []contactPersonJSON `json:"contact_persons"`
	BillingAddress *addressJSON        `json:"billing_address,omitempty"`
}

type invoiceListResponse struct {
	Code        int       `json:"code"`
	Message     string    `json:"message"`
	Invoices    []Invoice `json:"invoices"`
	PageContext struct {
		Page        int  `json:"page"`
		PerPage     int  `json:"per_page"`
		HasMorePage bool `json:"has_more_page"`
		Total       int  `json:"total"`
	} `json:"page_context"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

func toContactRequest(d ContactData) contactRequest {
	req := contactRequest{
		ContactName: d.DisplayName(),
		ContactType: "customer",
		ContactPersons: []contactPersonJSON{{
			FirstName:        d.FirstName,
			LastName:         d.LastName,
			Email:            d.Email,
			Phone:            d.Phone,
			IsPrimaryContact: true,
		}},
	}
	if d.Address != nil {
		req.BillingAddress = &addressJSON{
			Address: d.Address.Street,
			Street2: d.Address.Barangay,
			City:    d.Address.City,
			State:   d.Address.Province,
			Zip:     d.Address.PostalCode,
			Country: "Philippines",
		}
	}
	return req
}
