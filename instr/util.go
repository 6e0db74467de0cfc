package instr

import "fmt"

func errTooManyOperands(mnemonic string, toks []string) error {
	return fmt.Errorf("%s takes no operands, got %v", mnemonic, toks)
}
