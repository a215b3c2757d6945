package models

// Identity — личность, установленная по проверенному токену.
// Вычисляется на каждый запрос и нигде не хранится.
type Identity struct {
	SubjectID string
}
