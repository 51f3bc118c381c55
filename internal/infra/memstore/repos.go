package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
)

// t == nil のときはコミット済みの値だけを読む

type productRepo struct {
	s *Store
	t *tx
}

func (r *productRepo) FindByID(ctx context.Context, shopID int64, id int64) (model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok || p.ShopID != shopID || p.DeletedAt.Valid {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *productRepo) ListByIDs(ctx context.Context, shopID int64, ids []int64) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := []model.Product{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := r.s.products[id]
		if !ok || p.ShopID != shopID || p.DeletedAt.Valid {
			continue
		}
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

type counterRepo struct {
	s *Store
	t *tx
}

// ステージ済みを優先して読む
func (r *counterRepo) current(productID int64) (model.StockCounter, bool) {
	if r.t != nil {
		if c, ok := r.t.counters[productID]; ok {
			return c, true
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.counters[productID]
	return c, ok
}

func (r *counterRepo) GetOrCreateForUpdate(ctx context.Context, shopID int64, productID int64) (model.StockCounter, bool, error) {
	if r.t == nil {
		return model.StockCounter{}, false, errOutsideTx
	}
	if err := r.t.lock(ctx, productKey(productID)); err != nil {
		return model.StockCounter{}, false, err
	}

	c, ok := r.current(productID)
	if ok {
		if c.ShopID != shopID {
			return model.StockCounter{}, false, repo.ErrNotFound
		}
		return c, false, nil
	}

	if shopID <= 0 {
		return model.StockCounter{}, false, repo.ErrShopIDRequired
	}
	now := time.Now()
	c = model.StockCounter{
		ID:        r.s.nextID("stock_counters"),
		ShopID:    shopID,
		ProductID: productID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.t.counters[productID] = c
	return c, true, nil
}

func (r *counterRepo) FindByProductID(ctx context.Context, shopID int64, productID int64) (model.StockCounter, error) {
	c, ok := r.current(productID)
	if !ok || c.ShopID != shopID {
		return model.StockCounter{}, repo.ErrNotFound
	}
	return c, nil
}

func (r *counterRepo) Save(ctx context.Context, c model.StockCounter) error {
	if r.t == nil {
		return errOutsideTx
	}
	cur, ok := r.current(c.ProductID)
	if !ok || cur.ID != c.ID {
		return repo.ErrNotFound
	}
	c.CreatedAt = cur.CreatedAt
	r.t.counters[c.ProductID] = c
	return nil
}

func (r *counterRepo) ListLowStock(ctx context.Context, shopID int64) ([]model.StockCounter, error) {
	merged := map[int64]model.StockCounter{}
	r.s.mu.RLock()
	for pid, c := range r.s.counters {
		merged[pid] = c
	}
	r.s.mu.RUnlock()
	if r.t != nil {
		for pid, c := range r.t.counters {
			merged[pid] = c
		}
	}

	items := []model.StockCounter{}
	for _, c := range merged {
		if c.ShopID == shopID && c.IsLowStock() {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		ri, rj := items[i].StockRatio(), items[j].StockRatio()
		if ri != rj {
			return ri < rj
		}
		return items[i].ProductID < items[j].ProductID
	})
	return items, nil
}

type ledgerRepo struct {
	s *Store
	t *tx
}

func (r *ledgerRepo) Append(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	if r.t == nil {
		return model.LedgerEntry{}, errOutsideTx
	}
	e.ID = r.s.nextID("ledger_entries")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.t.ledger = append(r.t.ledger, e)
	return e, nil
}

func (r *ledgerRepo) entries(shopID int64, productID int64) []model.LedgerEntry {
	out := []model.LedgerEntry{}
	r.s.mu.RLock()
	for _, e := range r.s.ledger {
		if e.ShopID == shopID && e.ProductID == productID {
			out = append(out, e)
		}
	}
	r.s.mu.RUnlock()
	if r.t != nil {
		for _, e := range r.t.ledger {
			if e.ShopID == shopID && e.ProductID == productID {
				out = append(out, e)
			}
		}
	}
	return out
}

func (r *ledgerRepo) History(ctx context.Context, shopID int64, productID int64, page int, pageSize int) ([]model.LedgerEntry, int64, error) {
	all := r.entries(shopID, productID)
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []model.LedgerEntry{}, total, nil
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *ledgerRepo) Aggregate(ctx context.Context, q repo.LedgerAggregateQuery) (repo.LedgerAggregate, error) {
	var out repo.LedgerAggregate
	for _, e := range r.entries(q.ShopID, q.ProductID) {
		if q.Kind != nil && e.MovementKind != *q.Kind {
			continue
		}
		if q.From != nil && e.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !e.CreatedAt.Before(*q.To) {
			continue
		}
		out.Count++
		out.QuantitySum += e.Quantity
	}
	return out, nil
}

func (r *ledgerRepo) DailySales(ctx context.Context, shopID int64, productID int64, from time.Time, to time.Time) ([]repo.DailySales, error) {
	sales := &saleRepo{s: r.s, t: r.t}
	byDay := map[string]*repo.DailySales{}

	for _, e := range r.entries(shopID, productID) {
		if e.MovementKind != model.MovementSale || e.ReferenceType != model.ReferenceSale || e.ReferenceID == nil {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		sale, ok := sales.current(*e.ReferenceID)
		if !ok || sale.ShopID != shopID || sale.Status == model.SaleStatusRefunded {
			continue
		}
		//明細と結合できない行は数えない
		for _, it := range sales.items(sale.ID) {
			if it.ProductID != productID {
				continue
			}
			day := e.CreatedAt.UTC().Format("2006-01-02")
			d, ok := byDay[day]
			if !ok {
				d = &repo.DailySales{Day: day}
				byDay[day] = d
			}
			d.Quantity += -e.Quantity
			d.Revenue += -e.Quantity * it.UnitPrice
		}
	}

	rows := make([]repo.DailySales, 0, len(byDay))
	for _, d := range byDay {
		rows = append(rows, *d)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })
	return rows, nil
}

type saleRepo struct {
	s *Store
	t *tx
}

func (r *saleRepo) current(id int64) (model.Sale, bool) {
	if r.t != nil {
		if s, ok := r.t.sales[id]; ok {
			return s, true
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	s, ok := r.s.sales[id]
	return s, ok
}

func (r *saleRepo) items(saleID int64) []model.SaleItem {
	if r.t != nil {
		if items, ok := r.t.saleItems[saleID]; ok {
			return items
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.saleItems[saleID]
}

func (r *saleRepo) Create(ctx context.Context, s model.Sale, items []model.SaleItem) (model.Sale, []model.SaleItem, error) {
	if r.t == nil {
		return model.Sale{}, nil, errOutsideTx
	}
	s.ID = r.s.nextID("sales")
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	out := make([]model.SaleItem, len(items))
	for i, it := range items {
		it.ID = r.s.nextID("sale_items")
		it.SaleID = s.ID
		if it.CreatedAt.IsZero() {
			it.CreatedAt = s.CreatedAt
		}
		out[i] = it
	}
	r.t.sales[s.ID] = s
	r.t.saleItems[s.ID] = out
	return s, out, nil
}

func (r *saleRepo) FindByID(ctx context.Context, shopID int64, id int64) (model.Sale, error) {
	s, ok := r.current(id)
	if !ok || s.ShopID != shopID {
		return model.Sale{}, repo.ErrNotFound
	}
	return s, nil
}

func (r *saleRepo) FindByIDForUpdate(ctx context.Context, shopID int64, id int64) (model.Sale, error) {
	if r.t == nil {
		return model.Sale{}, errOutsideTx
	}
	if err := r.t.lock(ctx, saleKey(id)); err != nil {
		return model.Sale{}, err
	}
	return r.FindByID(ctx, shopID, id)
}

func (r *saleRepo) ListItems(ctx context.Context, saleID int64) ([]model.SaleItem, error) {
	items := r.items(saleID)
	out := make([]model.SaleItem, len(items))
	copy(out, items)
	return out, nil
}

func (r *saleRepo) MarkRefunded(ctx context.Context, id int64, at time.Time) error {
	if r.t == nil {
		return errOutsideTx
	}
	s, ok := r.current(id)
	if !ok {
		return repo.ErrNotFound
	}
	s.Status = model.SaleStatusRefunded
	s.RefundedAt = &at
	r.t.sales[id] = s
	return nil
}

type auditRepo struct {
	s *Store
	t *tx
}

func (r *auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	if r.t == nil {
		return errOutsideTx
	}
	log.ID = r.s.nextID("audit_logs")
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	r.t.auditLogs = append(r.t.auditLogs, log)
	return nil
}
