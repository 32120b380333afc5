package piece

// Kind identifies one of the seven falling-block shapes.
type Kind string

const (
	KindI Kind = "I"
	KindO Kind = "O"
	KindT Kind = "T"
	KindS Kind = "S"
	KindZ Kind = "Z"
	KindJ Kind = "J"
	KindL Kind = "L"
)

// Kinds is the full set in canonical order, the unit one shuffled bag is
// drawn from.
var Kinds = [7]Kind{KindI, KindO, KindT, KindS, KindZ, KindJ, KindL}
