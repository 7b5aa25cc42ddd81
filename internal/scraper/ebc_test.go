package scraper

import "testing"

const ebcPage = `
<article class="single_product">
  <a class="primary_img" href="/product/perfumes/PRF-1001"></a>
  <div class="products-single-image" style="background-image: url('/media/prf-1001.jpg')"></div>
  <h4 class="product_name">Perfume Armaf Club</h4>
  <span class="current_price">2.499,00</span>
  <span class="discount_price">1.999,00</span>
</article>
<article class="single_product">
  <a class="primary_img" href="/product/perfumes/PRF-1002"></a>
  <h4 class="product_name">Perfume Lattafa</h4>
  <span class="current_price">899,50</span>
</article>
<article class="single_product">
  <h4 class="product_name">Item quebrado sem link</h4>
  <span class="current_price">10,00</span>
</article>
`

func TestEBCParsePage(t *testing.T) {
	e := NewEBC("https://ebc.shop/category/FRG", 5)
	records, failures := e.ParsePage([]byte(ebcPage))

	if len(records) != 2 {
		t.Fatalf("records = %d, esperava 2", len(records))
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, esperava 1", len(failures))
	}

	// preço promocional vira o preço de venda e o cheio vira old_price
	promo := records[0]
	if promo.ProductID != "PRF-1001" {
		t.Errorf("ProductID = %q", promo.ProductID)
	}
	if promo.Price != 1999.00 {
		t.Errorf("Price = %v", promo.Price)
	}
	if promo.OldPrice == nil || *promo.OldPrice != 2499.00 {
		t.Errorf("OldPrice = %v", promo.OldPrice)
	}
	if promo.Discount == nil || *promo.Discount != 20.01 {
		t.Errorf("Discount = %v", promo.Discount)
	}
	if promo.ProductURL != "https://ebc.shop/product/perfumes/PRF-1001" {
		t.Errorf("ProductURL = %q", promo.ProductURL)
	}
	if promo.ImageURL != "https://ebc.shop/media/prf-1001.jpg" {
		t.Errorf("ImageURL = %q", promo.ImageURL)
	}

	// sem promoção: preço cheio, sem old_price
	plain := records[1]
	if plain.Price != 899.50 || plain.OldPrice != nil {
		t.Errorf("registro sem promoção = %+v", plain)
	}
}

func TestEBCPageURL(t *testing.T) {
	e := NewEBC("https://ebc.shop/category/FRG", 5)
	if got := e.PageURL(3); got != "https://ebc.shop/category/FRG?page=3" {
		t.Errorf("PageURL = %q", got)
	}
}

func TestNeptunSlugFromURL(t *testing.T) {
	cases := []struct {
		href string
		want string
	}{
		{"/TV/Samsung_UE55.nspx", "Samsung_UE55"},
		{"/TV/Samsung_UE55.nspx?ref=promo", "Samsung_UE55"},
		{"https://www.neptun-ks.com/Audio/JBL_Flip6.nspx", "JBL_Flip6"},
		{"/", ""},
	}
	for _, c := range cases {
		if got := slugFromURL(c.href); got != c.want {
			t.Errorf("slugFromURL(%q) = %q, esperava %q", c.href, got, c.want)
		}
	}
}
