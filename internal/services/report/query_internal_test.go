package report

import "testing"

func TestNormalizeSQL_StripsTrailingSemicolons(t *testing.T) {
	if got := normalizeSQL("  SELECT 1;  "); got != "SELECT 1" {
		t.Fatalf("expected trimmed sql got %q", got)
	}
	if got := normalizeSQL("SELECT 1 ;\n\t"); got != "SELECT 1" {
		t.Fatalf("expected trimmed sql got %q", got)
	}
}

func TestEnsureSelect_AllowsSelectAndCTE(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM products",
		"select 1",
		"WITH t AS (SELECT 1 AS x) SELECT x FROM t",
		"with t as (select 1) select * from t",
	} {
		if err := ensureSelect(sql); err != nil {
			t.Fatalf("ensureSelect(%q): unexpected error %v", sql, err)
		}
	}
}

func TestEnsureSelect_RejectsWrites(t *testing.T) {
	for _, sql := range []string{
		"DELETE FROM products",
		"UPDATE products SET price=0",
		"INSERT INTO products VALUES (1)",
		"DROP TABLE products",
		"TRUNCATE TABLE change_log",
	} {
		if err := ensureSelect(sql); err == nil {
			t.Fatalf("ensureSelect(%q): expected rejection", sql)
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(0, 1, 50) != 1 || clamp(99, 1, 50) != 50 || clamp(10, 1, 50) != 10 {
		t.Fatal("clamp bounds broken")
	}
}
