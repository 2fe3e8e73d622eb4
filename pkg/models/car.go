package models

// Car body types accepted for a car model.
const (
	CarTypeSedan = "SEDAN"
	CarTypeSUV   = "SUV"
	CarTypeWagon = "WAGON"
)

// ValidCarTypes contains all valid car body types.
var ValidCarTypes = []string{CarTypeSedan, CarTypeSUV, CarTypeWagon}

// IsValidCarType checks if the given body type is valid.
func IsValidCarType(carType string) bool {
	for _, t := range ValidCarTypes {
		if t == carType {
			return true
		}
	}
	return false
}

// CarListing is one row of the model/make join served by get_cars.
type CarListing struct {
	CarModel string `json:"CarModel"`
	CarMake  string `json:"CarMake"`
}

// CarMakeSeed describes a make and its models in the catalog fixture.
type CarMakeSeed struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Models      []CarModelSeed `yaml:"models"`
}

// CarModelSeed describes one model in the catalog fixture.
type CarModelSeed struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Year     int    `yaml:"year"`
	DealerID *int   `yaml:"dealer_id"`
}
