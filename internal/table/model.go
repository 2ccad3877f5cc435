package table

type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
)

type DiningTable struct {
	ID       int64
	AreaID   int64
	AreaName string
	Label    string
	Seats    int
	Status   Status
}
