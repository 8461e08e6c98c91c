package tables

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"modernc.org/sqlite/vtab"

	"github.com/umputun/sqlpdf/pkg/handle"
	"github.com/umputun/sqlpdf/pkg/render"
)

// pageBinding is the page a child cursor or function works on, together with the lease
// keeping its document open. The page is loaded independently of the one pdf_pages
// reads, so it lives exactly as long as the binding.
type pageBinding struct {
	lease *handle.Lease
	page  render.Page
}

// bindPage resolves a page handle cell. Cells not produced by pdf_pages of this registry
// are contract violations, cells of a closed session are stale.
func bindPage(env Env, cell vtab.Value) (*pageBinding, error) {
	ref, err := env.Registry.Decode(PageTag, cell)
	if err != nil {
		return nil, fmt.Errorf("can't decode page handle: %w", err)
	}
	lease, err := env.Registry.Acquire(ref)
	if err != nil {
		return nil, fmt.Errorf("can't acquire page handle: %w", err)
	}
	res, err := lease.Resource()
	if err != nil {
		_ = lease.Release()
		return nil, err
	}
	doc, ok := res.(render.Document)
	if !ok {
		_ = lease.Release()
		return nil, fmt.Errorf("session holds %T, not a document: %w", res, handle.ErrTagMismatch)
	}
	page, err := doc.Page(ref.Page)
	if err != nil {
		_ = lease.Release()
		return nil, fmt.Errorf("can't load page %d: %w", ref.Page, err)
	}
	return &pageBinding{lease: lease, page: page}, nil
}

// release closes the page and gives the lease back, nil binding is fine
func (b *pageBinding) release() error {
	if b == nil {
		return nil
	}
	errs := new(multierror.Error)
	if b.page != nil {
		if err := b.page.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("can't close page: %w", err))
		}
		b.page = nil
	}
	if err := b.lease.Release(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
