package token

import "testing"

func TestLookupKeyword(t *testing.T) {
	for word, want := range keywords {
		got, ok := LookupKeyword(word)
		if !ok || got != want {
			t.Errorf("LookupKeyword(%q) = (%v, %v), want (%v, true)", word, got, ok, want)
		}
	}
	if _, ok := LookupKeyword("notakeyword"); ok {
		t.Errorf("LookupKeyword(%q) unexpectedly succeeded", "notakeyword")
	}
}

func TestLookupBuiltin(t *testing.T) {
	if !LookupBuiltin("print_int") {
		t.Errorf("LookupBuiltin(%q) = false, want true", "print_int")
	}
	if LookupBuiltin("print_float") {
		t.Errorf("LookupBuiltin(%q) unexpectedly succeeded", "print_float")
	}
}

func TestLookupOperator(t *testing.T) {
	for symbol, entry := range operatorTable {
		op, prec, ok := LookupOperator(symbol)
		if !ok || op != entry.Op || prec != entry.Prec {
			t.Errorf("LookupOperator(%q) = (%v, %v, %v), want (%v, %v, true)", symbol, op, prec, ok, entry.Op, entry.Prec)
		}
	}
	if _, _, ok := LookupOperator("@"); ok {
		t.Errorf("LookupOperator(%q) unexpectedly succeeded", "@")
	}
}

func TestPrecedenceNext(t *testing.T) {
	if P0.Next() != P1 || P1.Next() != P2 || P2.Next() != P3 || P3.Next() != P4 {
		t.Errorf("Precedence.Next chain broken")
	}
}

func TestPrecedenceNextPanicsOnCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected Precedence.Next to panic on PCount")
		}
	}()
	PCount.Next()
}

func TestOpClassifiers(t *testing.T) {
	for _, op := range []Op{Equal, Greater, Less} {
		if !op.IsComparison() {
			t.Errorf("%v.IsComparison() = false, want true", op)
		}
	}
	for _, op := range []Op{And, Or} {
		if !op.IsLogical() {
			t.Errorf("%v.IsLogical() = false, want true", op)
		}
	}
	if Plus.IsComparison() || Plus.IsLogical() {
		t.Errorf("Plus misclassified")
	}
}
