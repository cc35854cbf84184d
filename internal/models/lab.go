package models

type BloodType string

const (
	BloodAPositive  BloodType = "A_Positive"
	BloodANegative  BloodType = "A_Negative"
	BloodBPositive  BloodType = "B_Positive"
	BloodBNegative  BloodType = "B_Negative"
	BloodABPositive BloodType = "AB_Positive"
	BloodABNegative BloodType = "AB_Negative"
	BloodOPositive  BloodType = "O_Positive"
	BloodONegative  BloodType = "O_Negative"
)

var BloodTypes = []BloodType{
	BloodAPositive, BloodANegative,
	BloodBPositive, BloodBNegative,
	BloodABPositive, BloodABNegative,
	BloodOPositive, BloodONegative,
}

func (b BloodType) Valid() bool {
	for _, t := range BloodTypes {
		if b == t {
			return true
		}
	}
	return false
}

// Units of blood available per type. Missing type means zero units
type BloodInventory map[BloodType]int

// Complete returns inventory with every blood type present
func (inv BloodInventory) Complete() BloodInventory {
	out := make(BloodInventory, len(BloodTypes))
	for _, t := range BloodTypes {
		out[t] = inv[t]
	}
	return out
}

type Lab struct {
	Principal

	PhoneNumber    string         `json:"phoneNumber"`
	Address        string         `json:"address"`
	TestsOffered   []string       `json:"testsOffered"`
	BloodInventory BloodInventory `json:"bloodInventory"`
}

func (l Lab) Redacted() Lab {
	l.Principal = l.Principal.Redacted()
	return l
}
