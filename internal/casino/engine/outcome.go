package engine

// Outcome deriva o lado da moeda a partir da primeira palavra aleatória.
// Função pura: o mesmo word produz sempre o mesmo lado.
// Paridade: ímpar = cara (true), par = coroa (false).
func Outcome(word uint64) bool {
	return word%2 == 1
}
