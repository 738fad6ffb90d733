package ddl

import "testing"

func TestStripDefinerVersionGatedWrapper(t *testing.T) {
	in := "/*!50017 DEFINER=`dev`@`%` SQL SECURITY DEFINER */ PROCEDURE foo()"
	want := "PROCEDURE foo()"
	if got := StripDefiner(in); got != want {
		t.Errorf("StripDefiner(%q) = %q, want %q", in, got, want)
	}
}

func TestStripDefinerPlainClause(t *testing.T) {
	in := "CREATE DEFINER=`admin`@`localhost` VIEW `v_active` AS SELECT 1"
	want := "CREATE VIEW `v_active` AS SELECT 1"
	if got := StripDefiner(in); got != want {
		t.Errorf("StripDefiner(%q) = %q, want %q", in, got, want)
	}
}

func TestStripDefinerUnquotedHostWildcard(t *testing.T) {
	in := "DEFINER=root@% PROCEDURE bar()"
	want := "PROCEDURE bar()"
	if got := StripDefiner(in); got != want {
		t.Errorf("StripDefiner(%q) = %q, want %q", in, got, want)
	}
}

func TestStripDefinersDropsAlterDatabase(t *testing.T) {
	in := "ALTER DATABASE `shop` CHARACTER SET utf8mb4;\nCREATE TABLE `t` (`id` int);"
	got := StripDefiners(in)
	if got != "CREATE TABLE `t` (`id` int);" {
		t.Errorf("StripDefiners did not drop ALTER DATABASE line: %q", got)
	}
}

func TestTokeniseWholeWordOnly(t *testing.T) {
	in := "CREATE DATABASE `shop`; USE `shop`; -- shop_archive stays untouched"
	got := Tokenise(in, "shop")
	want := "CREATE DATABASE `#DATABASE#`; USE `#DATABASE#`; -- shop_archive stays untouched"
	if got != want {
		t.Errorf("Tokenise = %q, want %q", got, want)
	}
}

func TestTokeniseDetokeniseRoundTrip(t *testing.T) {
	in := "CREATE DATABASE `shop`; USE `shop`;"
	tokenised := Tokenise(in, "shop")
	got := Detokenise(tokenised, "shop")
	if got != in {
		t.Errorf("round trip mismatch: got %q, want %q", got, in)
	}
}

func TestDetokeniseDifferentTarget(t *testing.T) {
	tokenised := "CREATE DATABASE `#DATABASE#`; USE `#DATABASE#`;"
	got := Detokenise(tokenised, "shop_staging")
	want := "CREATE DATABASE `shop_staging`; USE `shop_staging`;"
	if got != want {
		t.Errorf("Detokenise = %q, want %q", got, want)
	}
}
