package greedy

import (
	"fmt"
	"strings"
)

const (
	TblProbes = "greedyprobes"
	TblRounds = "greedyrounds"
)

func (it *Iterator) initdb() error {
	if it.Db == nil || it.dbready {
		return nil
	}

	s := "CREATE TABLE IF NOT EXISTS " + TblProbes + " (run INTEGER,round INTEGER,asset INTEGER,savings REAL,val REAL"
	s += it.xdbsql("define")
	s += ");"
	if _, err := it.Db.Exec(s); err != nil {
		return fmt.Errorf("greedy: create %v table: %w", TblProbes, err)
	}

	s = "CREATE TABLE IF NOT EXISTS " + TblRounds + " (run INTEGER,round INTEGER,nprobe INTEGER,adopted INTEGER,val REAL"
	s += it.xdbsql("define")
	s += ");"
	if _, err := it.Db.Exec(s); err != nil {
		return fmt.Errorf("greedy: create %v table: %w", TblRounds, err)
	}

	it.dbready = true
	return nil
}

func (it *Iterator) xdbsql(op string) string {
	var b strings.Builder
	for i := 0; i < it.Curr.Len(); i++ {
		switch op {
		case "?":
			b.WriteString(",?")
		case "define":
			fmt.Fprintf(&b, ",x%v REAL", i)
		case "x":
			fmt.Fprintf(&b, ",x%v", i)
		default:
			panic("invalid db op " + op)
		}
	}
	return b.String()
}

func pos2iface(pos []float64) []interface{} {
	vals := make([]interface{}, len(pos))
	for i, v := range pos {
		vals[i] = v
	}
	return vals
}

// updateDb writes the probes of the latest round and the resulting weights.
func (it *Iterator) updateDb(adopted int) (err error) {
	if it.Db == nil {
		return nil
	}
	if err := it.initdb(); err != nil {
		return err
	}

	tx, err := it.Db.Begin()
	if err != nil {
		return fmt.Errorf("greedy: begin run log transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	s1 := "INSERT INTO " + TblProbes + " (run,round,asset,savings,val" + it.xdbsql("x") + ") VALUES (?,?,?,?,?" + it.xdbsql("?") + ");"
	for _, pr := range it.probes {
		args := []interface{}{it.Run, it.count, pr.asset, pr.savings, pr.p.Val}
		args = append(args, pos2iface(pr.p.Pos())...)
		if _, err := tx.Exec(s1, args...); err != nil {
			return fmt.Errorf("greedy: log probe: %w", err)
		}
	}

	s2 := "INSERT INTO " + TblRounds + " (run,round,nprobe,adopted,val" + it.xdbsql("x") + ") VALUES (?,?,?,?,?" + it.xdbsql("?") + ");"
	args := []interface{}{it.Run, it.count, len(it.probes), adopted, it.Curr.Val}
	args = append(args, pos2iface(it.Curr.Pos())...)
	if _, err := tx.Exec(s2, args...); err != nil {
		return fmt.Errorf("greedy: log round: %w", err)
	}
	return nil
}
