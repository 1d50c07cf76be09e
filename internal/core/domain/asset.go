package domain

type Asset struct {
	Id            string
	LinkedToken   string
	ScalingFactor uint64
	CreatedAt     int64
	UpdatedAt     int64
}

func (a Asset) Equal(other Asset) bool {
	return a.Id == other.Id &&
		a.LinkedToken == other.LinkedToken &&
		a.ScalingFactor == other.ScalingFactor
}

type Account struct {
	Address   string
	PublicKey string
}
